package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"videoSearch/core"
)

// Embedder 文本和图像向量化
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, base64Image string) ([]float32, error)
}

// EmbedderOptions OpenAI 兼容服务参数
type EmbedderOptions struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Dim        int
	Timeout    time.Duration
}

// OpenAIEmbedder 文本走 go-openai，图像走多模态接口 /embeddings/multimodal
type OpenAIEmbedder struct {
	oa         *openai.Client
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	dim        int
	client     *http.Client
}

func NewOpenAIEmbedder(opts EmbedderOptions) *OpenAIEmbedder {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	oaCfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		oaCfg.BaseURL = opts.BaseURL
	}
	oaCfg.HTTPClient = httpClient

	return &OpenAIEmbedder{
		oa:         openai.NewClientWithConfig(oaCfg),
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
		dim:        opts.Dim,
		client:     httpClient,
	}
}

// EmbedText 文本向量化，调用方负责截断过长文本
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.oa.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.textModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, core.Upstream("embedding", fmt.Errorf("embedding API failed: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, core.Upstream("embedding", fmt.Errorf("no embeddings returned"))
	}
	return fitDimension(resp.Data[0].Embedding, e.dim)
}

type multimodalInput struct {
	Type     string            `json:"type"`
	ImageURL map[string]string `json:"image_url,omitempty"`
}

type multimodalRequest struct {
	Model          string            `json:"model"`
	Input          []multimodalInput `json:"input"`
	EncodingFormat string            `json:"encoding_format,omitempty"`
}

type multimodalEmbedding struct {
	Embedding []float32 `json:"embedding"`
}

// data 字段在不同服务中可能是对象或数组
type multimodalResponse struct {
	Data json.RawMessage `json:"data"`
}

// EmbedImage 图像向量化，base64Image 为不带前缀的base64
func (e *OpenAIEmbedder) EmbedImage(ctx context.Context, base64Image string) ([]float32, error) {
	reqBody, err := json.Marshal(multimodalRequest{
		Model: e.imageModel,
		Input: []multimodalInput{{
			Type:     "image_url",
			ImageURL: map[string]string{"url": "data:image/png;base64," + base64Image},
		}},
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings/multimodal", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, core.Upstream("embedding", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, core.Upstream("embedding", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var mr multimodalResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, core.Upstream("embedding", fmt.Errorf("failed to decode response: %w", err))
	}

	vec, err := decodeMultimodalData(mr.Data)
	if err != nil {
		return nil, core.Upstream("embedding", err)
	}
	return fitDimension(vec, e.dim)
}

func decodeMultimodalData(raw json.RawMessage) ([]float32, error) {
	var single multimodalEmbedding
	if err := json.Unmarshal(raw, &single); err == nil && len(single.Embedding) > 0 {
		return single.Embedding, nil
	}
	var list []multimodalEmbedding
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && len(list[0].Embedding) > 0 {
		return list[0].Embedding, nil
	}
	return nil, fmt.Errorf("no embeddings returned")
}

// fitDimension 超出配置维度时截取前N维并做L2归一化，不足时报错
func fitDimension(vec []float32, dim int) ([]float32, error) {
	switch {
	case dim <= 0 || dim == len(vec):
		return vec, nil
	case len(vec) < dim:
		return nil, core.Upstream("embedding", fmt.Errorf("embedding has %d dimensions, want %d", len(vec), dim))
	default:
		return slicedNormL2(vec, dim), nil
	}
}

func slicedNormL2(vec []float32, dim int) []float32 {
	if dim > len(vec) {
		dim = len(vec)
	}

	sliced := make([]float32, dim)
	copy(sliced, vec[:dim])

	var norm float64
	for _, v := range sliced {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)

	if norm > 0 {
		for i := range sliced {
			sliced[i] = float32(float64(sliced[i]) / norm)
		}
	}

	return sliced
}
