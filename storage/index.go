package storage

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"videoSearch/config"
	"videoSearch/core"
)

// ShotIndex abstracts the vector index backend
type ShotIndex interface {
	Search(ctx context.Context, collection string, q *core.ShotQuery) ([]core.ScoredResult, error)
	Upsert(ctx context.Context, collection string, shots []core.Shot) (int, error)
	Close() error
}

// NewShotIndex 按配置创建索引后端
// 外部后端初始化失败时返回错误，不再静默回退到内存
func NewShotIndex(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (ShotIndex, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryShotIndex(), nil
	case "milvus":
		return NewMilvusShotIndex(ctx, MilvusOptions{
			Address:  cfg.MilvusAddr,
			Username: cfg.MilvusUsername,
			Password: cfg.MilvusPassword,
			APIKey:   cfg.MilvusAPIKey,
			Dim:      cfg.EmbeddingDim,
		}, log)
	case "pgvector":
		return NewPgVectorShotIndex(ctx, cfg.PostgresURL, cfg.EmbeddingDim, log)
	case "opensearch":
		return NewOpenSearchShotIndex(OpenSearchOptions{
			URL:      cfg.OpenSearchURL,
			Username: cfg.OpenSearchUsername,
			Password: cfg.OpenSearchPassword,
			Dim:      cfg.EmbeddingDim,
			Timeout:  cfg.HTTPTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// cosineSimilarity 余弦相似度，维度不一致或零向量返回0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func fieldText(r core.ScoredResult, field string) string {
	switch field {
	case core.FieldDescription:
		return r.Description
	case core.FieldTranscript:
		return r.Transcript
	case core.FieldPublicFigures:
		return r.PublicFigures
	case core.FieldPrivateFigures:
		return r.PrivateFigures
	case core.FieldVideoName:
		return r.VideoName
	default:
		return ""
	}
}

func shotVector(s core.Shot, field string) []float32 {
	switch field {
	case core.FieldDescVector:
		return s.DescVector
	case core.FieldImageVector:
		return s.ImageVector
	case core.FieldTranscriptVector:
		return s.TranscriptVector
	default:
		return nil
	}
}

// sortHits 按分数降序，同分按文档ID保证结果稳定
func sortHits(hits []core.ScoredResult) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].VideoName+"-"+hits[i].ShotID < hits[j].VideoName+"-"+hits[j].ShotID
	})
}

func truncateHits(hits []core.ScoredResult, size int) []core.ScoredResult {
	if size > 0 && len(hits) > size {
		return hits[:size]
	}
	return hits
}
