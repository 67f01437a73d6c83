package toxicity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		scores    map[string]float64
		wantScore float64
		wantAttr  string
	}{
		{"empty", nil, 0, ""},
		{"max wins", map[string]float64{"toxicity": 0.3, "threat": 0.85}, 0.85, "threat"},
		{"tie picks smallest name", map[string]float64{"insult": 0.6, "profanity": 0.6}, 0.6, "insult"},
		{"upper case normalized", map[string]float64{"SEVERE_TOXICITY": 0.9}, 0.9, "severe_toxicity"},
		{"clamped", map[string]float64{"spam": 1.7}, 1, "spam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.scores)
			if v.Score != tt.wantScore || v.Attribute != tt.wantAttr {
				t.Fatalf("Evaluate(%v) = %+v, want %v/%s", tt.scores, v, tt.wantScore, tt.wantAttr)
			}
		})
	}
}

func TestAdapter_FailOpenOnError(t *testing.T) {
	a := NewAdapter(ClassifierFunc(func(context.Context, string) (map[string]float64, error) {
		return nil, errors.New("boom")
	}))
	v := a.Score(context.Background(), "hello")
	if !v.Failed || v.Score != 0 {
		t.Fatalf("expected fail-open verdict, got %+v", v)
	}
}

func TestAdapter_FailOpenOnTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	a := NewAdapter(ClassifierFunc(func(context.Context, string) (map[string]float64, error) {
		<-block // 不理会 ctx 的分类器
		return map[string]float64{"toxicity": 1}, nil
	}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	v := a.Score(context.Background(), "slow")
	if !v.Failed || v.Score != 0 {
		t.Fatalf("expected fail-open verdict, got %+v", v)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestAdapter_NilClassifierIsClean(t *testing.T) {
	v := NewAdapter(nil).Score(context.Background(), "x")
	if v.Score != 0 || v.Failed {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestAdapter_CacheSkipsClassifier(t *testing.T) {
	var calls int32
	c := ClassifierFunc(func(context.Context, string) (map[string]float64, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]float64{"insult": 0.7}, nil
	})
	cache, err := NewLRUCache(16, time.Minute)
	if err != nil {
		t.Fatalf("NewLRUCache: %v", err)
	}
	a := NewAdapter(c, WithCache(cache))

	for i := 0; i < 3; i++ {
		v := a.Score(context.Background(), "same text")
		if v.Score != 0.7 || v.Attribute != "insult" {
			t.Fatalf("unexpected verdict %+v", v)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 classifier call, got %d", calls)
	}
}

func TestAdapter_FailureNotCached(t *testing.T) {
	var calls int32
	c := ClassifierFunc(func(context.Context, string) (map[string]float64, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("down")
	})
	cache, _ := NewLRUCache(16, time.Minute)
	a := NewAdapter(c, WithCache(cache))
	a.Score(context.Background(), "t")
	a.Score(context.Background(), "t")
	if calls != 2 {
		t.Fatalf("failed verdicts must not be cached, calls=%d", calls)
	}
}

func TestRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Hour)
	ctx := context.Background()
	key := CacheKey("hello")

	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected miss")
	}
	c.Set(ctx, key, Verdict{Score: 0.55, Attribute: "spam"})
	v, ok := c.Get(ctx, key)
	if !ok || v.Score != 0.55 || v.Attribute != "spam" {
		t.Fatalf("unexpected cached verdict %+v ok=%v", v, ok)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected expiry")
	}
}

func TestHTTPClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Comment.Text != "you are bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"attributeScores":{
			"TOXICITY":{"summaryScore":{"value":0.3}},
			"THREAT":{"summaryScore":{"value":0.85}}}}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, "secret")
	scores, err := c.Classify(context.Background(), "you are bad")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if scores["threat"] != 0.85 || scores["toxicity"] != 0.3 {
		t.Fatalf("unexpected scores %v", scores)
	}

	bad := NewHTTPClassifier(srv.URL, "wrong")
	if _, err := bad.Classify(context.Background(), "you are bad"); err == nil {
		t.Fatalf("expected error on non-200")
	}
}
