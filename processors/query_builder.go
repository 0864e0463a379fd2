package processors

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"videoSearch/core"
	"videoSearch/storage"
)

// 双引号内的短语，非贪婪
var quotedPhrase = regexp.MustCompile(`"(.*?)"`)

// QueryBuilder 把用户查询转换为结构化的索引查询
type QueryBuilder struct {
	embedder storage.Embedder
	policy   core.SearchPolicy
}

func NewQueryBuilder(embedder storage.Embedder, policy core.SearchPolicy) *QueryBuilder {
	return &QueryBuilder{embedder: embedder, policy: policy}
}

// BuildTextQuery 描述向量 3 : 转录向量 1 的加权相似度，minimum_should_match=1
// 引号内的短语作为必须命中的精确匹配条件
func (b *QueryBuilder) BuildTextQuery(ctx context.Context, text string) (*core.ShotQuery, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text query", core.ErrInvalidQuery)
	}

	vec, err := b.embedder.EmbedText(ctx, TruncateText(text, b.policy.MaxEmbeddingInputChars))
	if err != nil {
		return nil, fmt.Errorf("embed query text: %w", err)
	}

	q := &core.ShotQuery{
		Size: b.policy.MaxTextResults,
		Should: []core.SimilarityClause{
			{Field: core.FieldDescVector, Vector: vec, Boost: b.policy.DescriptionBoost},
			{Field: core.FieldTranscriptVector, Vector: vec, Boost: b.policy.TranscriptBoost},
		},
		MinimumShouldMatch: 1,
		SourceFields:       core.SourceFields,
	}

	for _, phrase := range ExtractQuotedPhrases(text) {
		q.Must = append(q.Must, core.PhraseClause{Phrase: phrase, Fields: core.PhraseFields})
	}
	return q, nil
}

// BuildImageQuery 图像k近邻查询，不做短语提取
func (b *QueryBuilder) BuildImageQuery(ctx context.Context, payload string) (*core.ShotQuery, error) {
	data, err := DecodeImagePayload(payload)
	if err != nil {
		return nil, err
	}

	vec, err := b.embedder.EmbedImage(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embed query image: %w", err)
	}

	return &core.ShotQuery{
		Size:         b.policy.MaxImageResults,
		KNN:          &core.KNNClause{Field: core.FieldImageVector, Vector: vec, K: b.policy.ImageKNN},
		SourceFields: core.SourceFields,
	}, nil
}

// ExtractQuotedPhrases 提取所有双引号短语，空白短语忽略
func ExtractQuotedPhrases(text string) []string {
	var phrases []string
	for _, m := range quotedPhrase.FindAllStringSubmatch(text, -1) {
		if p := strings.TrimSpace(m[1]); p != "" {
			phrases = append(phrases, p)
		}
	}
	return phrases
}

// DecodeImagePayload 去掉 data URI 前缀并校验base64，返回规范化的base64
func DecodeImagePayload(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		_, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return "", fmt.Errorf("%w: malformed data URI", core.ErrInvalidImage)
		}
		payload = rest
	}
	if payload == "" {
		return "", fmt.Errorf("%w: empty payload", core.ErrInvalidImage)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// 兼容缺少填充的标准编码和 URL 安全编码
		unpadded := strings.TrimRight(payload, "=")
		raw, err = base64.RawStdEncoding.DecodeString(unpadded)
		if err != nil {
			raw, err = base64.RawURLEncoding.DecodeString(unpadded)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrInvalidImage, err)
		}
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: empty image", core.ErrInvalidImage)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// TruncateText 按字符数截断
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
