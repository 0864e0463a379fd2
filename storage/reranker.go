package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"videoSearch/core"
)

// Reranker 交叉编码器重排序服务
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []core.RerankDocument, topN int) ([]core.RerankResult, error)
}

// HTTPReranker Cohere/Jina 兼容的 /rerank 接口
type HTTPReranker struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

func NewHTTPReranker(url, apiKey, model string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPReranker{url: url, apiKey: apiKey, model: model, client: &http.Client{Timeout: timeout}}
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []core.RerankResult `json:"results"`
}

// Rerank 文档以JSON字段集提交，返回按相关度排序的位置
func (r *HTTPReranker) Rerank(ctx context.Context, query string, docs []core.RerankDocument, topN int) ([]core.RerankResult, error) {
	if len(docs) == 0 {
		return []core.RerankResult{}, nil
	}

	documents := make([]string, 0, len(docs))
	for _, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		documents = append(documents, string(b))
	}

	reqBody, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, core.Upstream("rerank", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, core.Upstream("rerank", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, core.Upstream("rerank", fmt.Errorf("failed to decode response: %w", err))
	}
	return rr.Results, nil
}
