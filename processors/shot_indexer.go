package processors

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"videoSearch/core"
	"videoSearch/storage"
)

// ShotIndexer 把入库流程写出的镜头JSON向量化并写入索引
type ShotIndexer struct {
	blobs            storage.BlobStore
	embedder         storage.Embedder
	index            storage.ShotIndex
	shotBucket       string
	transcriptBucket string
	maxChars         int
	log              logrus.FieldLogger
}

// IndexerOptions 索引器依赖
type IndexerOptions struct {
	Blobs            storage.BlobStore
	Embedder         storage.Embedder
	Index            storage.ShotIndex
	ShotBucket       string
	TranscriptBucket string
	MaxChars         int
	Log              logrus.FieldLogger
}

func NewShotIndexer(opts IndexerOptions) *ShotIndexer {
	return &ShotIndexer{
		blobs:            opts.Blobs,
		embedder:         opts.Embedder,
		index:            opts.Index,
		shotBucket:       opts.ShotBucket,
		transcriptBucket: opts.TranscriptBucket,
		maxChars:         opts.MaxChars,
		log:              opts.Log,
	}
}

// SegmentTranscript 读取 {jobId}.srt，切分后写回 {jobId}.json
// 字幕不存在时写入空列表
func (x *ShotIndexer) SegmentTranscript(ctx context.Context, jobID string) ([]core.SubtitleSegment, error) {
	raw, err := x.blobs.Get(ctx, x.transcriptBucket, jobID+".srt")
	if err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		return nil, fmt.Errorf("read subtitle: %w", err)
	}

	segments := ParseSubtitles(string(raw))
	payload, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}
	if err := x.blobs.Put(ctx, x.transcriptBucket, jobID+".json", payload, "application/json"); err != nil {
		return nil, fmt.Errorf("write segments: %w", err)
	}

	x.log.WithFields(logrus.Fields{"job_id": jobID, "segments": len(segments)}).Info("transcript segmented")
	return segments, nil
}

// IndexShot 读取 {jobId}/{shotId}.json 和 {jobId}/{shotId}.png，生成三路向量后写入索引
func (x *ShotIndexer) IndexShot(ctx context.Context, collection, jobID, shotID string) (core.Shot, error) {
	raw, err := x.blobs.Get(ctx, x.shotBucket, jobID+"/"+shotID+".json")
	if err != nil {
		return core.Shot{}, fmt.Errorf("read shot metadata: %w", err)
	}
	var shot core.Shot
	if err := json.Unmarshal(raw, &shot); err != nil {
		return core.Shot{}, fmt.Errorf("parse shot metadata: %w", err)
	}
	if shot.JobID == "" {
		shot.JobID = jobID
	}
	if shot.ShotID == "" {
		shot.ShotID = shotID
	}
	if shot.EndTime <= shot.StartTime {
		return core.Shot{}, fmt.Errorf("%w: shot %s has invalid time range [%d,%d)", core.ErrInvalidQuery, shotID, shot.StartTime, shot.EndTime)
	}

	if strings.TrimSpace(shot.Transcript) == "" {
		if segments, err := x.loadSegments(ctx, jobID); err == nil {
			shot.Transcript = ShotTranscript(shot.StartTime, shot.EndTime, segments)
		} else {
			x.log.WithError(err).WithField("job_id", jobID).Debug("no transcript segments")
		}
	}
	shot.PublicFigures = NormalizeFigureNames(shot.PublicFigures)
	shot.PrivateFigures = NormalizeFigureNames(shot.PrivateFigures)

	if shot.DescVector, err = x.embedder.EmbedText(ctx, TruncateText(shot.Description, x.maxChars)); err != nil {
		return core.Shot{}, fmt.Errorf("embed description: %w", err)
	}
	if shot.TranscriptVector, err = x.embedder.EmbedText(ctx, TruncateText(shot.Transcript, x.maxChars)); err != nil {
		return core.Shot{}, fmt.Errorf("embed transcript: %w", err)
	}

	image, err := x.blobs.Get(ctx, x.shotBucket, jobID+"/"+shotID+".png")
	if err != nil {
		return core.Shot{}, fmt.Errorf("read shot image: %w", err)
	}
	if shot.ImageVector, err = x.embedder.EmbedImage(ctx, base64.StdEncoding.EncodeToString(image)); err != nil {
		return core.Shot{}, fmt.Errorf("embed image: %w", err)
	}

	if _, err := x.index.Upsert(ctx, collection, []core.Shot{shot}); err != nil {
		return core.Shot{}, fmt.Errorf("upsert shot: %w", err)
	}

	x.log.WithFields(logrus.Fields{"collection": collection, "doc_id": shot.DocumentID()}).Info("shot indexed")
	return shot, nil
}

func (x *ShotIndexer) loadSegments(ctx context.Context, jobID string) ([]core.SubtitleSegment, error) {
	raw, err := x.blobs.Get(ctx, x.transcriptBucket, jobID+".json")
	if err != nil {
		return nil, err
	}
	var segments []core.SubtitleSegment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	return segments, nil
}
