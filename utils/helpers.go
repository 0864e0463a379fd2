package utils

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// RunFFmpeg 执行FFmpeg命令，ffmpegPath 为空时从 PATH 查找
func RunFFmpeg(ctx context.Context, ffmpegPath string, args []string) error {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	bin, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return fmt.Errorf("FFmpeg未找到，请确保已安装并在PATH中: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("FFmpeg执行失败: %w\n输出: %s", err, string(output))
	}
	return nil
}

// SampleFramesArgs 按帧率采样、最多 maxFrames 帧的FFmpeg参数
func SampleFramesArgs(videoPath, framesDir string, fps, maxFrames int) []string {
	outputPattern := filepath.Join(framesDir, "%03d.png")
	return []string{
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d,select='lte(n,%d)'", fps, maxFrames-1),
		"-vsync", "0",
		"-frames:v", strconv.Itoa(maxFrames),
		"-q:v", "1",
		outputPattern,
	}
}

// ListFiles 按文件名排序返回匹配的文件
func ListFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ParsePort 解析端口号
func ParsePort(portStr string) (int, error) {
	if portStr == "" {
		return 8080, nil // 默认端口
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("无效的端口号: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("端口号超出范围 (1-65535): %d", port)
	}

	return port, nil
}

// EnsureDir 确保目录存在
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// FormatBytes 格式化字节数为人类可读格式
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
