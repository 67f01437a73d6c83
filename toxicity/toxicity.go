// Package toxicity 封装外部毒性评分服务：分类器接口、超时与失败放行、判定缓存。
package toxicity

import (
	"context"
	"sort"
	"strings"
)

// Classifier 外部毒性分类器，返回 属性 -> 分数(0..1)
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// ClassifierFunc 让普通函数实现 Classifier
type ClassifierFunc func(ctx context.Context, text string) (map[string]float64, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (map[string]float64, error) {
	return f(ctx, text)
}

// Verdict 一次评分的结论
type Verdict struct {
	Score     float64 `json:"score"`     // 各属性最大值
	Attribute string  `json:"attribute"` // 取得最大值的属性，小写
	Failed    bool    `json:"-"`         // 分类器失败，按放行处理
}

// Evaluate 取最大分数及其属性。分数相同时取字典序最小的属性，保证结果稳定。
func Evaluate(scores map[string]float64) Verdict {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var v Verdict
	for _, k := range keys {
		s := clamp(scores[k])
		if v.Attribute == "" || s > v.Score {
			v.Score = s
			v.Attribute = strings.ToLower(k)
		}
	}
	return v
}

func clamp(s float64) float64 {
	switch {
	case s != s, s < 0: // NaN
		return 0
	case s > 1:
		return 1
	}
	return s
}
