package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cydxin/community-sdk/cons"
	"github.com/go-redis/redis/v8"
)

func TestAuthService_ExtractToken_BearerFirst(t *testing.T) {
	a := NewAuthService(nil)

	req := &http.Request{Header: make(http.Header), URL: &url.URL{RawQuery: "token=q"}}
	req.Header.Set("Authorization", "Bearer headerToken")

	got := a.ExtractToken(req)
	if got != "headerToken" {
		t.Fatalf("expected headerToken, got %q", got)
	}
}

func TestAuthService_ExtractToken_QueryFallback(t *testing.T) {
	a := NewAuthService(nil)

	u, _ := url.Parse("http://example.com/path?token=queryToken")
	req := &http.Request{Header: make(http.Header), URL: u}

	got := a.ExtractToken(req)
	if got != "queryToken" {
		t.Fatalf("expected queryToken, got %q", got)
	}
}

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestTokenService_IssueLookupRevoke(t *testing.T) {
	rdb := newMiniRedis(t)
	ctx := context.Background()
	a := NewAuthService(rdb)

	tok, err := a.Tokens().Issue(ctx, Identity{UserID: 42, Role: cons.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := &http.Request{Header: make(http.Header), URL: &url.URL{}}
	req.Header.Set("Authorization", "Bearer "+tok)
	id, got, err := a.AuthenticateRequest(ctx, req)
	if err != nil || got != tok {
		t.Fatalf("AuthenticateRequest: token=%q err=%v", got, err)
	}
	if id.UserID != 42 || !id.IsAdmin() {
		t.Fatalf("unexpected identity %+v", id)
	}

	if err := a.Tokens().RevokeToken(ctx, tok); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := a.Authenticate(ctx, tok); err == nil {
		t.Fatalf("revoked token should fail")
	}
}

func TestTokenService_LegacyValueDefaultsToUser(t *testing.T) {
	rdb := newMiniRedis(t)
	ctx := context.Background()
	if err := rdb.Set(ctx, "cm:token:old", "7", time.Hour).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	id, err := NewTokenService(rdb).Lookup(ctx, "old")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if id.UserID != 7 || id.Role != cons.RoleUser {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTokenService_RevokeAllTokensByUser(t *testing.T) {
	rdb := newMiniRedis(t)
	ctx := context.Background()
	ts := NewTokenService(rdb)

	t1, _ := ts.Issue(ctx, Identity{UserID: 5}, time.Hour)
	t2, _ := ts.Issue(ctx, Identity{UserID: 5}, time.Hour)
	other, _ := ts.Issue(ctx, Identity{UserID: 6}, time.Hour)

	if err := ts.RevokeAllTokensByUser(ctx, 5); err != nil {
		t.Fatalf("RevokeAllTokensByUser: %v", err)
	}
	for _, tok := range []string{t1, t2} {
		if _, err := ts.Lookup(ctx, tok); err == nil {
			t.Fatalf("token %s should be revoked", tok)
		}
	}
	if _, err := ts.Lookup(ctx, other); err != nil {
		t.Fatalf("other user's token should survive: %v", err)
	}
}

func TestAuthService_MissingToken(t *testing.T) {
	a := NewAuthService(newMiniRedis(t))
	req := &http.Request{Header: make(http.Header), URL: &url.URL{}}
	if _, _, err := a.AuthenticateRequest(context.Background(), req); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestJWTResolver_RoundTrip(t *testing.T) {
	r := NewJWTResolver("s3cret", "community")
	tok, err := r.Sign(Identity{UserID: 9, Role: cons.RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	a := NewAuthServiceWithResolver(r)
	if a.Tokens() != nil {
		t.Fatalf("external resolver should not expose a token store")
	}
	id, err := a.Authenticate(context.Background(), tok)
	if err != nil || id.UserID != 9 || !id.IsAdmin() {
		t.Fatalf("Authenticate: %+v err=%v", id, err)
	}

	if _, err := NewJWTResolver("other", "community").Resolve(context.Background(), tok); err == nil {
		t.Fatalf("wrong secret should be rejected")
	}
	if _, err := NewJWTResolver("s3cret", "elsewhere").Resolve(context.Background(), tok); err == nil {
		t.Fatalf("wrong issuer should be rejected")
	}
	expired, _ := r.Sign(Identity{UserID: 9}, -time.Minute)
	if _, err := r.Resolve(context.Background(), expired); err == nil {
		t.Fatalf("expired token should be rejected")
	}
}

func TestNATSPublisher_NilConnIsNoop(t *testing.T) {
	p := NewNATSPublisher(nil)
	if err := p.Publish(context.Background(), NotificationEvent{Type: cons.NotifyUpvote}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := p.Subject(cons.NotifyUpvote); got != "community.notifications.upvote" {
		t.Fatalf("subject = %q", got)
	}
}
