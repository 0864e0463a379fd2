package processors

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"videoSearch/core"
	"videoSearch/storage"
)

// FilterByScore 保留分数不低于阈值的结果，顺序不变
func FilterByScore(results []core.ScoredResult, minScore float64) []core.ScoredResult {
	kept := make([]core.ScoredResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept
}

// RerankAdapter 调用重排序服务并应用第二道相关度阈值
type RerankAdapter struct {
	reranker storage.Reranker
	policy   core.SearchPolicy
	log      logrus.FieldLogger
}

// NewRerankAdapter reranker 为 nil 时直接透传
func NewRerankAdapter(reranker storage.Reranker, policy core.SearchPolicy, log logrus.FieldLogger) *RerankAdapter {
	return &RerankAdapter{reranker: reranker, policy: policy, log: log}
}

// Rerank 返回按重排序结果排列、分数被相关度覆盖的候选
// 重排序失败时按 RerankFallback 处理
func (a *RerankAdapter) Rerank(ctx context.Context, query string, candidates []core.ScoredResult) ([]core.ScoredResult, error) {
	if len(candidates) == 0 {
		return []core.ScoredResult{}, nil
	}
	if a.reranker == nil {
		return byVectorScore(candidates), nil
	}

	// 只把向量分数最高的前 MaxRerankResults 条送去重排序
	pool := byVectorScore(candidates)
	if n := a.policy.MaxRerankResults; n > 0 && len(pool) > n {
		pool = pool[:n]
	}
	docs := make([]core.RerankDocument, 0, len(pool))
	for _, c := range pool {
		docs = append(docs, c.RerankDocument())
	}
	topN := len(pool)

	ranked, err := a.reranker.Rerank(ctx, query, docs, topN)
	if err != nil {
		if a.policy.RerankFallback == core.RerankFallbackFail {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		a.log.WithError(err).WithField("candidates", len(candidates)).Warn("rerank failed, keeping vector order")
		return byVectorScore(candidates), nil
	}

	out := make([]core.ScoredResult, 0, len(ranked))
	seen := make(map[int]bool, len(ranked))
	for _, rr := range ranked {
		if rr.Index < 0 || rr.Index >= len(pool) || seen[rr.Index] {
			continue
		}
		seen[rr.Index] = true
		if rr.RelevanceScore < a.policy.MinRerankScore {
			continue
		}
		r := pool[rr.Index]
		r.Score = rr.RelevanceScore
		out = append(out, r)
	}
	return out, nil
}

func byVectorScore(candidates []core.ScoredResult) []core.ScoredResult {
	out := make([]core.ScoredResult, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
