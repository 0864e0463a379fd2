package processors

import (
	"context"
	"fmt"

	"videoSearch/utils"
)

// FrameExtractor 从片段中采样静态帧
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, framesDir string, fps, maxFrames int) ([]string, error)
}

// FFmpegFrameExtractor 调用 ffmpeg 按帧率采样
type FFmpegFrameExtractor struct {
	FFmpegPath string
}

// ExtractFrames 返回按帧序排列的帧文件路径
func (e *FFmpegFrameExtractor) ExtractFrames(ctx context.Context, videoPath, framesDir string, fps, maxFrames int) ([]string, error) {
	if err := utils.EnsureDir(framesDir); err != nil {
		return nil, fmt.Errorf("创建帧目录失败: %w", err)
	}
	if err := utils.RunFFmpeg(ctx, e.FFmpegPath, utils.SampleFramesArgs(videoPath, framesDir, fps, maxFrames)); err != nil {
		return nil, err
	}

	frames, err := utils.ListFiles(framesDir, "*.png")
	if err != nil {
		return nil, fmt.Errorf("读取帧列表失败: %w", err)
	}
	if len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}
	return frames, nil
}
