package processors

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videoSearch/core"
	"videoSearch/storage"
	"videoSearch/utils"
)

// AggregateClipResults 汇总逐帧检索结果，返回平均分最高且达到阈值的视频
//
// frameResults[i] 为第 i 帧的结果（按帧序）。每帧每个视频只取第一条命中，
// 未命中的帧记0分，平均分 = 分数之和 / 帧数。同分时取 video_name 较小者。
func AggregateClipResults(frameResults [][]core.ScoredResult, policy core.SearchPolicy) []core.ClipMatch {
	matches := []core.ClipMatch{}
	numFrames := len(frameResults)
	if numFrames == 0 {
		return matches
	}

	candidates := map[string]*core.ClipCandidate{}
	var order []string

	for i, hits := range frameResults {
		processed := map[string]bool{}
		for _, item := range hits {
			if processed[item.VideoName] {
				continue
			}
			processed[item.VideoName] = true

			c, ok := candidates[item.VideoName]
			if !ok {
				c = &core.ClipCandidate{
					VideoName: item.VideoName,
					Scores:    make([]float64, numFrames),
					Data:      item,
				}
				candidates[item.VideoName] = c
				order = append(order, item.VideoName)
			}
			c.Scores[i] = item.Score
			c.Data.StartTime = min(c.Data.StartTime, item.StartTime)
			c.Data.EndTime = max(c.Data.EndTime, item.EndTime)
		}
	}

	var best *core.ClipCandidate
	var bestAvg float64
	for _, name := range order {
		c := candidates[name]
		avg := c.AverageScore()
		if best == nil || avg > bestAvg || (avg == bestAvg && c.VideoName < best.VideoName) {
			best, bestAvg = c, avg
		}
	}

	if best != nil && bestAvg >= policy.MinClipScore {
		matches = append(matches, core.ClipMatch{
			VideoName:       best.VideoName,
			StartTime:       best.Data.StartTime,
			EndTime:         best.Data.EndTime,
			Score:           bestAvg,
			OccurrenceCount: best.OccurrenceCount(),
		})
	}
	return matches
}

// ImageSearcher 单帧图像检索（已按视频去重）
type ImageSearcher interface {
	SearchImage(ctx context.Context, index, payload string) ([]core.ScoredResult, error)
}

// ClipSearcher 片段检索：下载、抽帧、并发逐帧检索、聚合
type ClipSearcher struct {
	blobs     storage.BlobStore
	bucket    string
	extractor FrameExtractor
	images    ImageSearcher
	tmpDir    string
	policy    core.SearchPolicy
	log       logrus.FieldLogger
}

// ClipSearcherOptions 片段检索依赖
type ClipSearcherOptions struct {
	Blobs     storage.BlobStore
	Bucket    string
	Extractor FrameExtractor
	Images    ImageSearcher
	TmpDir    string
	Policy    core.SearchPolicy
	Log       logrus.FieldLogger
}

func NewClipSearcher(opts ClipSearcherOptions) *ClipSearcher {
	tmp := opts.TmpDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	return &ClipSearcher{
		blobs:     opts.Blobs,
		bucket:    opts.Bucket,
		extractor: opts.Extractor,
		images:    opts.Images,
		tmpDir:    tmp,
		policy:    opts.Policy,
		log:       opts.Log,
	}
}

type frameJob struct {
	index int
	path  string
}

type frameOutcome struct {
	index int
	hits  []core.ScoredResult
	err   error
}

// SearchClip objectKey 为片段在 clip bucket 中的对象键
// 临时文件在所有返回路径上清理
func (s *ClipSearcher) SearchClip(ctx context.Context, index, objectKey string) ([]core.ClipMatch, error) {
	workDir := filepath.Join(s.tmpDir, "clip-"+uuid.NewString())
	if err := utils.EnsureDir(workDir); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	data, err := s.blobs.Get(ctx, s.bucket, objectKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, fmt.Errorf("%w: clip %s not found", core.ErrInvalidQuery, objectKey)
		}
		return nil, core.Upstream("blob", err)
	}

	clipPath := filepath.Join(workDir, "clip"+filepath.Ext(objectKey))
	if err := os.WriteFile(clipPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write clip: %w", err)
	}
	s.log.WithFields(logrus.Fields{"clip": objectKey, "size": utils.FormatBytes(int64(len(data)))}).Debug("clip downloaded")

	frames, err := s.extractor.ExtractFrames(ctx, clipPath, filepath.Join(workDir, "frames"), s.policy.ClipFPS, s.policy.MaxClipFrames)
	if err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}
	if len(frames) == 0 {
		return []core.ClipMatch{}, nil
	}

	frameResults, err := s.searchFrames(ctx, index, frames)
	if err != nil {
		return nil, err
	}
	return AggregateClipResults(frameResults, s.policy), nil
}

// searchFrames 工作协程数等于帧数，结果统一由当前协程收集
func (s *ClipSearcher) searchFrames(ctx context.Context, index string, frames []string) ([][]core.ScoredResult, error) {
	jobs := make(chan frameJob, len(frames))
	results := make(chan frameOutcome, len(frames))

	for w := 0; w < len(frames); w++ {
		go func() {
			for job := range jobs {
				hits, err := s.searchFrame(ctx, index, job.path)
				results <- frameOutcome{index: job.index, hits: hits, err: err}
			}
		}()
	}
	for i, path := range frames {
		jobs <- frameJob{index: i, path: path}
	}
	close(jobs)

	frameResults := make([][]core.ScoredResult, len(frames))
	var lastErr error
	failed := 0
	for range frames {
		out := <-results
		if out.err != nil {
			failed++
			lastErr = out.err
			s.log.WithError(out.err).WithField("frame", out.index).Warn("frame search failed")
			continue
		}
		frameResults[out.index] = out.hits
	}

	if failed == len(frames) {
		return nil, fmt.Errorf("all %d frame searches failed: %w", failed, lastErr)
	}
	return frameResults, nil
}

func (s *ClipSearcher) searchFrame(ctx context.Context, index, path string) ([]core.ScoredResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return s.images.SearchImage(ctx, index, base64.StdEncoding.EncodeToString(raw))
}
