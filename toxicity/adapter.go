package toxicity

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout 单次评分的超时
const DefaultTimeout = 2 * time.Second

// Adapter 包装 Classifier：超时控制、失败放行、可选缓存。
// Score 不返回错误，外部服务的任何失败都表现为 score=0 且 Failed=true。
type Adapter struct {
	classifier Classifier
	cache      Cache
	timeout    time.Duration
	log        *zap.Logger
}

type AdapterOption func(*Adapter)

func WithCache(c Cache) AdapterOption {
	return func(a *Adapter) { a.cache = c }
}

func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAdapter classifier 为 nil 时所有文本都视为干净
func NewAdapter(c Classifier, opts ...AdapterOption) *Adapter {
	a := &Adapter{classifier: c, timeout: DefaultTimeout, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Score(ctx context.Context, text string) Verdict {
	if a == nil || a.classifier == nil {
		return Verdict{}
	}

	key := CacheKey(text)
	if a.cache != nil {
		if v, ok := a.cache.Get(ctx, key); ok {
			return v
		}
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		scores map[string]float64
		err    error
	}
	// 分类器不一定尊重 ctx，超时以这里的 select 为准
	ch := make(chan result, 1)
	go func() {
		s, err := a.classifier.Classify(cctx, text)
		ch <- result{s, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-cctx.Done():
		res.err = cctx.Err()
	}
	if res.err != nil {
		a.log.Warn("toxicity classify failed, fail open",
			zap.Error(res.err), zap.Duration("timeout", a.timeout))
		return Verdict{Failed: true}
	}

	v := Evaluate(res.scores)
	if a.cache != nil {
		a.cache.Set(ctx, key, v)
	}
	return v
}
