package processors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"videoSearch/core"
	"videoSearch/storage"
)

// SearchEngine 查询入口：构建查询 → 索引检索 → 过滤/重排序 → 去重
// 每次查询相互独立，可并发调用
type SearchEngine struct {
	builder *QueryBuilder
	index   storage.ShotIndex
	rerank  *RerankAdapter
	clips   *ClipSearcher
	policy  core.SearchPolicy
	log     logrus.FieldLogger
}

// EngineOptions 检索引擎依赖
type EngineOptions struct {
	Embedder  storage.Embedder
	Index     storage.ShotIndex
	Reranker  storage.Reranker // 可为 nil
	Blobs     storage.BlobStore
	Bucket    string
	Extractor FrameExtractor
	TmpDir    string
	Policy    core.SearchPolicy
	Log       logrus.FieldLogger
}

func NewSearchEngine(opts EngineOptions) *SearchEngine {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &SearchEngine{
		builder: NewQueryBuilder(opts.Embedder, opts.Policy),
		index:   opts.Index,
		rerank:  NewRerankAdapter(opts.Reranker, opts.Policy, log),
		policy:  opts.Policy,
		log:     log,
	}
	e.clips = NewClipSearcher(ClipSearcherOptions{
		Blobs:     opts.Blobs,
		Bucket:    opts.Bucket,
		Extractor: opts.Extractor,
		Images:    e,
		TmpDir:    opts.TmpDir,
		Policy:    opts.Policy,
		Log:       log,
	})
	return e
}

// Search 按查询类型分发，返回可直接序列化的结果列表
func (e *SearchEngine) Search(ctx context.Context, req core.QueryRequest) (any, error) {
	if strings.TrimSpace(req.Index) == "" {
		return nil, fmt.Errorf("%w: index is required", core.ErrInvalidQuery)
	}
	start := time.Now()
	log := e.log.WithFields(logrus.Fields{"index": req.Index, "type": req.Type})

	var (
		out   any
		count int
		err   error
	)
	switch req.Type {
	case core.QueryTypeText:
		var res []core.ScoredResult
		res, err = e.SearchText(ctx, req.Index, req.Query)
		out, count = res, len(res)
	case core.QueryTypeImage:
		var res []core.ScoredResult
		res, err = e.SearchImage(ctx, req.Index, req.Query)
		out, count = res, len(res)
	case core.QueryTypeClip:
		var res []core.ClipMatch
		res, err = e.SearchClip(ctx, req.Index, req.Query)
		out, count = res, len(res)
	default:
		return nil, fmt.Errorf("%w: unknown query type %q", core.ErrInvalidQuery, req.Type)
	}
	if err != nil {
		log.WithError(err).Warn("search failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{"results": count, "duration_ms": time.Since(start).Milliseconds()}).Info("search completed")
	return out, nil
}

// SearchText 文本查询：向量阈值 → 重排序及阈值 → 按视频去重
func (e *SearchEngine) SearchText(ctx context.Context, index, text string) ([]core.ScoredResult, error) {
	q, err := e.builder.BuildTextQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := e.index.Search(ctx, index, q)
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", index, err)
	}

	candidates := FilterByScore(hits, e.policy.MinVectorScore)
	ranked, err := e.rerank.Rerank(ctx, text, candidates)
	if err != nil {
		return nil, err
	}
	return DeduplicateByVideo(ranked, e.policy), nil
}

// SearchImage 图像查询：不重排序，保留原始相似度
func (e *SearchEngine) SearchImage(ctx context.Context, index, payload string) ([]core.ScoredResult, error) {
	q, err := e.builder.BuildImageQuery(ctx, payload)
	if err != nil {
		return nil, err
	}
	hits, err := e.index.Search(ctx, index, q)
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", index, err)
	}
	return DeduplicateByVideo(FilterByScore(hits, e.policy.MinImageScore), e.policy), nil
}

// SearchClip 片段查询
func (e *SearchEngine) SearchClip(ctx context.Context, index, objectKey string) ([]core.ClipMatch, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, fmt.Errorf("%w: empty clip key", core.ErrInvalidQuery)
	}
	return e.clips.SearchClip(ctx, index, objectKey)
}
