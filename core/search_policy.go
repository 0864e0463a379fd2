package core

// 重排序失败时的处理策略
const (
	RerankFallbackPassthrough = "passthrough"
	RerankFallbackFail        = "fail"
)

// SearchPolicy 检索、过滤、去重和片段聚合的可调参数
type SearchPolicy struct {
	MaxTextResults   int     `json:"max_text_results" yaml:"max_text_results" validate:"gt=0"`
	MaxImageResults  int     `json:"max_image_results" yaml:"max_image_results" validate:"gt=0"`
	ImageKNN         int     `json:"image_knn" yaml:"image_knn" validate:"gt=0"`
	DescriptionBoost float64 `json:"description_boost" yaml:"description_boost" validate:"gte=0"`
	TranscriptBoost  float64 `json:"transcript_boost" yaml:"transcript_boost" validate:"gte=0"`

	MinVectorScore   float64 `json:"min_vector_score" yaml:"min_vector_score" validate:"gte=0"`
	MinImageScore    float64 `json:"min_image_score" yaml:"min_image_score" validate:"gte=0"`
	MaxRerankResults int     `json:"max_rerank_results" yaml:"max_rerank_results" validate:"gt=0"`
	MinRerankScore   float64 `json:"min_rerank_score" yaml:"min_rerank_score" validate:"gte=0,lte=1"`
	RerankFallback   string  `json:"rerank_fallback" yaml:"rerank_fallback" validate:"oneof=passthrough fail"`

	MergeWindowMs   int64   `json:"merge_window_ms" yaml:"merge_window_ms" validate:"gte=0"`
	MergeScoreRatio float64 `json:"merge_score_ratio" yaml:"merge_score_ratio" validate:"gte=0,lte=1"`

	ClipFPS       int     `json:"clip_fps" yaml:"clip_fps" validate:"gt=0"`
	MaxClipFrames int     `json:"max_clip_frames" yaml:"max_clip_frames" validate:"gt=0,lte=10"`
	MinClipScore  float64 `json:"min_clip_score" yaml:"min_clip_score" validate:"gte=0"`

	MaxEmbeddingInputChars int `json:"max_embedding_input_chars" yaml:"max_embedding_input_chars" validate:"gt=0"`
}

// DefaultSearchPolicy 默认参数
func DefaultSearchPolicy() SearchPolicy {
	return SearchPolicy{
		MaxTextResults:   100,
		MaxImageResults:  50,
		ImageKNN:         50,
		DescriptionBoost: 3.0, // 描述 75% / 转录 25%
		TranscriptBoost:  1.0,

		MinVectorScore:   0.5,
		MinImageScore:    0,
		MaxRerankResults: 50,
		MinRerankScore:   0.05,
		RerankFallback:   RerankFallbackPassthrough,

		MergeWindowMs:   30000,
		MergeScoreRatio: 0.8,

		ClipFPS:       1,
		MaxClipFrames: 10,
		MinClipScore:  0.75,

		MaxEmbeddingInputChars: 2048,
	}
}
