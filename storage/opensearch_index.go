package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"videoSearch/core"
)

// OpenSearchOptions OpenSearch 连接参数
type OpenSearchOptions struct {
	URL      string
	Username string
	Password string
	Dim      int
	Timeout  time.Duration
}

// ---------------- OpenSearch implementation ----------------

// OpenSearchShotIndex 基于 opensearch-go 访问 k-NN 索引，集合即索引名
type OpenSearchShotIndex struct {
	client  *opensearchapi.Client
	dim     int
	timeout time.Duration
}

func NewOpenSearchShotIndex(opts OpenSearchOptions) (*OpenSearchShotIndex, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: []string{strings.TrimRight(opts.URL, "/")},
			Username:  opts.Username,
			Password:  opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return &OpenSearchShotIndex{client: client, dim: opts.Dim, timeout: timeout}, nil
}

// RenderOpenSearchQuery 把结构化查询渲染为 OpenSearch DSL
func RenderOpenSearchQuery(q *core.ShotQuery) map[string]any {
	body := map[string]any{
		"size":    q.Size,
		"_source": q.SourceFields,
	}

	if q.IsKNN() {
		body["query"] = map[string]any{
			"knn": map[string]any{
				q.KNN.Field: map[string]any{"vector": q.KNN.Vector, "k": q.KNN.K},
			},
		}
		return body
	}

	should := make([]any, 0, len(q.Should))
	for _, c := range q.Should {
		should = append(should, map[string]any{
			"script_score": map[string]any{
				"query": map[string]any{"match_all": map[string]any{}},
				"script": map[string]any{
					"lang":   "knn",
					"source": "knn_score",
					"params": map[string]any{
						"field":       c.Field,
						"query_value": c.Vector,
						"space_type":  "cosinesimil",
					},
				},
				"boost": c.Boost,
			},
		})
	}
	boolQuery := map[string]any{
		"should":               should,
		"minimum_should_match": q.MinimumShouldMatch,
	}

	if len(q.Must) > 0 {
		must := make([]any, 0, len(q.Must))
		for _, p := range q.Must {
			must = append(must, map[string]any{
				"multi_match": map[string]any{
					"query":  p.Phrase,
					"fields": p.Fields,
					"type":   "phrase",
				},
			})
		}
		boolQuery["must"] = must
	}

	body["query"] = map[string]any{"bool": boolQuery}
	return body
}

func (s *OpenSearchShotIndex) Search(ctx context.Context, collection string, q *core.ShotQuery) ([]core.ScoredResult, error) {
	body, err := jsonBody(RenderOpenSearchQuery(q))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{collection},
		Body:    body,
	})
	if err != nil {
		return nil, core.Upstream("opensearch", fmt.Errorf("search %s: %w", collection, err))
	}

	hits := make([]core.ScoredResult, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var r core.ScoredResult
		if err := json.Unmarshal(h.Source, &r); err != nil {
			return nil, core.Upstream("opensearch", fmt.Errorf("decode hit %s: %w", h.ID, err))
		}
		r.Score = float64(h.Score)
		hits = append(hits, r)
	}
	return hits, nil
}

// EnsureCollection 创建带 knn 映射的索引，已存在时跳过
func (s *OpenSearchShotIndex) EnsureCollection(ctx context.Context, collection string, dim int) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.exists(ctx, collection)
	if err != nil || exists {
		return err
	}

	body, err := jsonBody(openSearchMapping(dim))
	if err != nil {
		return err
	}
	if _, err := s.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{Index: collection, Body: body}); err != nil {
		return core.Upstream("opensearch", fmt.Errorf("create index %s: %w", collection, err))
	}
	return nil
}

func openSearchMapping(dim int) map[string]any {
	vectorField := func() map[string]any {
		return map[string]any{
			"type":      "knn_vector",
			"dimension": dim,
			"method": map[string]any{
				"name":       "hnsw",
				"space_type": "cosinesimil",
				"engine":     "nmslib",
			},
		}
	}
	return map[string]any{
		"settings": map[string]any{"index": map[string]any{"knn": true}},
		"mappings": map[string]any{
			"properties": map[string]any{
				core.FieldJobID:            map[string]any{"type": "keyword"},
				core.FieldVideoName:        map[string]any{"type": "keyword"},
				core.FieldShotID:           map[string]any{"type": "keyword"},
				core.FieldStartTime:        map[string]any{"type": "long"},
				core.FieldEndTime:          map[string]any{"type": "long"},
				core.FieldDescription:      map[string]any{"type": "text"},
				core.FieldPublicFigures:    map[string]any{"type": "text"},
				core.FieldPrivateFigures:   map[string]any{"type": "text"},
				core.FieldTranscript:       map[string]any{"type": "text"},
				core.FieldDescVector:       vectorField(),
				core.FieldImageVector:      vectorField(),
				core.FieldTranscriptVector: vectorField(),
			},
		},
	}
}

func (s *OpenSearchShotIndex) Upsert(ctx context.Context, collection string, shots []core.Shot) (int, error) {
	if len(shots) == 0 {
		return 0, nil
	}
	if err := s.EnsureCollection(ctx, collection, s.dim); err != nil {
		return 0, err
	}
	n := 0
	for _, shot := range shots {
		body, err := jsonBody(shot)
		if err != nil {
			return n, err
		}
		ictx, cancel := context.WithTimeout(ctx, s.timeout)
		_, err = s.client.Index(ictx, opensearchapi.IndexReq{
			Index:      collection,
			DocumentID: shot.DocumentID(),
			Body:       body,
		})
		cancel()
		if err != nil {
			return n, core.Upstream("opensearch", fmt.Errorf("index %s: %w", shot.DocumentID(), err))
		}
		n++
	}
	return n, nil
}

// exists 404 表示索引不存在，其余错误返回上游错误
func (s *OpenSearchShotIndex) exists(ctx context.Context, collection string) (bool, error) {
	resp, err := s.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{collection}})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, core.Upstream("opensearch", fmt.Errorf("check index %s: %w", collection, err))
	}
	return true, nil
}

func jsonBody(v any) (*bytes.Reader, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(payload), nil
}

func (s *OpenSearchShotIndex) Close() error { return nil }
