package core

// 索引字段名
const (
	FieldJobID            = "jobId"
	FieldVideoName        = "video_name"
	FieldShotID           = "shot_id"
	FieldStartTime        = "shot_startTime"
	FieldEndTime          = "shot_endTime"
	FieldDescription      = "shot_description"
	FieldPublicFigures    = "shot_publicFigures"
	FieldPrivateFigures   = "shot_privateFigures"
	FieldTranscript       = "shot_transcript"
	FieldDescVector       = "shot_desc_vector"
	FieldImageVector      = "shot_image_vector"
	FieldTranscriptVector = "shot_transcript_vector"
)

// SourceFields 查询返回的字段
var SourceFields = []string{
	FieldJobID,
	FieldVideoName,
	FieldShotID,
	FieldStartTime,
	FieldEndTime,
	FieldDescription,
	FieldPublicFigures,
	FieldPrivateFigures,
	FieldTranscript,
}

// PhraseFields 精确短语匹配的字段
var PhraseFields = []string{
	FieldPublicFigures,
	FieldPrivateFigures,
	FieldDescription,
	FieldTranscript,
}

// SimilarityClause 向量相似度子句，得分为 boost * (1 + cosine)
type SimilarityClause struct {
	Field  string
	Vector []float32
	Boost  float64
}

// PhraseClause 必须命中的精确短语，任意一个字段包含即可
type PhraseClause struct {
	Phrase string
	Fields []string
}

// KNNClause k近邻查询，得分为 (1 + cosine) / 2
type KNNClause struct {
	Field  string
	Vector []float32
	K      int
}

// ShotQuery 与后端无关的结构化查询
type ShotQuery struct {
	Size               int
	Should             []SimilarityClause
	MinimumShouldMatch int
	Must               []PhraseClause
	KNN                *KNNClause
	SourceFields       []string
}

// IsKNN 是否为图像k近邻查询
func (q *ShotQuery) IsKNN() bool { return q.KNN != nil }

// ScriptScore 单个相似度子句的原始分数 (OpenSearch knn_score/cosinesimil)
func ScriptScore(cosine float64) float64 { return 1 + cosine }

// KNNScore k近邻查询的原始分数 (OpenSearch cosinesimil 空间)
func KNNScore(cosine float64) float64 { return (1 + cosine) / 2 }
