package core

import (
	"path/filepath"
	"strings"
)

// ========== 镜头索引数据结构 ==========

// Shot 索引中的最小检索单元，由入库流程写入，检索引擎只读
type Shot struct {
	JobID            string    `json:"jobId"`
	VideoName        string    `json:"video_name"`
	ShotID           string    `json:"shot_id"`
	StartTime        int64     `json:"shot_startTime"`
	EndTime          int64     `json:"shot_endTime"`
	Description      string    `json:"shot_description"`
	PublicFigures    string    `json:"shot_publicFigures"`
	PrivateFigures   string    `json:"shot_privateFigures"`
	Transcript       string    `json:"shot_transcript"`
	DescVector       []float32 `json:"shot_desc_vector,omitempty"`
	ImageVector      []float32 `json:"shot_image_vector,omitempty"`
	TranscriptVector []float32 `json:"shot_transcript_vector,omitempty"`
}

// DocumentID 索引文档ID
func (s Shot) DocumentID() string {
	return s.VideoName + "-" + s.ShotID
}

// Result 返回只包含可检索字段的结果副本
func (s Shot) Result(score float64) ScoredResult {
	return ScoredResult{
		JobID:          s.JobID,
		VideoName:      s.VideoName,
		ShotID:         s.ShotID,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Description:    s.Description,
		PublicFigures:  s.PublicFigures,
		PrivateFigures: s.PrivateFigures,
		Transcript:     s.Transcript,
		Score:          score,
	}
}

// ScoredResult 单次查询内的候选结果
type ScoredResult struct {
	JobID          string  `json:"jobId"`
	VideoName      string  `json:"video_name"`
	ShotID         string  `json:"shot_id"`
	StartTime      int64   `json:"shot_startTime"`
	EndTime        int64   `json:"shot_endTime"`
	Description    string  `json:"shot_description"`
	PublicFigures  string  `json:"shot_publicFigures"`
	PrivateFigures string  `json:"shot_privateFigures"`
	Transcript     string  `json:"shot_transcript"`
	Score          float64 `json:"score"`
}

// RerankDocument 提交给重排序服务的字段集合
type RerankDocument struct {
	Description    string `json:"shot_description"`
	PublicFigures  string `json:"shot_publicFigures"`
	PrivateFigures string `json:"shot_privateFigures"`
	Transcript     string `json:"shot_transcript"`
}

// RerankDocument 裁剪为重排序所需字段
func (r ScoredResult) RerankDocument() RerankDocument {
	return RerankDocument{
		Description:    r.Description,
		PublicFigures:  r.PublicFigures,
		PrivateFigures: r.PrivateFigures,
		Transcript:     r.Transcript,
	}
}

// RerankResult 重排序服务返回的单个位置
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// SubtitleSegment 句子级字幕片段（毫秒）
type SubtitleSegment struct {
	StartTime int64  `json:"sentence_startTime"`
	EndTime   int64  `json:"sentence_endTime"`
	Sentence  string `json:"sentence"`
}

// ClipCandidate 片段查询中按视频聚合的候选
type ClipCandidate struct {
	VideoName string
	Scores    []float64
	Data      ScoredResult
}

// AverageScore 帧分数之和除以帧数，缺失帧按0计
func (c *ClipCandidate) AverageScore() float64 {
	if len(c.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Scores {
		sum += s
	}
	return sum / float64(len(c.Scores))
}

// OccurrenceCount 有非零分数的帧数
func (c *ClipCandidate) OccurrenceCount() int {
	n := 0
	for _, s := range c.Scores {
		if s > 0 {
			n++
		}
	}
	return n
}

// ClipMatch 片段查询的响应记录
type ClipMatch struct {
	VideoName       string  `json:"video_name"`
	StartTime       int64   `json:"shot_startTime"`
	EndTime         int64   `json:"shot_endTime"`
	Score           float64 `json:"score"`
	OccurrenceCount int     `json:"occurrence_count"`
}

// ========== 查询请求 ==========

type QueryType string

const (
	QueryTypeText  QueryType = "text"
	QueryTypeImage QueryType = "image"
	QueryTypeClip  QueryType = "clip"
)

// QueryRequest 唯一的查询入口参数
type QueryRequest struct {
	Index string    `json:"index" query:"index" validate:"required"`
	Type  QueryType `json:"type" query:"type" validate:"required,oneof=text image clip"`
	Query string    `json:"query" query:"query" validate:"required"`
}

// ========== 工具函数 ==========

// DataRoot 本地数据根目录
func DataRoot() string { return filepath.Join(".", "data") }

// SplitNames 把逗号分隔的人名列表拆分为去空白后的非空条目
func SplitNames(list string) []string {
	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}
