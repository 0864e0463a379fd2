package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleFramesArgs(t *testing.T) {
	args := SampleFramesArgs("/tmp/clip.mp4", "/tmp/frames", 1, 10)

	assert.Equal(t, []string{
		"-y",
		"-i", "/tmp/clip.mp4",
		"-vf", "fps=1,select='lte(n,9)'",
		"-vsync", "0",
		"-frames:v", "10",
		"-q:v", "1",
		filepath.Join("/tmp/frames", "%03d.png"),
	}, args)
}

func TestListFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"003.png", "001.png", "002.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := ListFiles(dir, "*.png")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "001.png"), files[0])
	assert.Equal(t, filepath.Join(dir, "003.png"), files[2])
}

func TestParsePort(t *testing.T) {
	port, err := ParsePort("")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	port, err = ParsePort("9000")
	require.NoError(t, err)
	assert.Equal(t, 9000, port)

	_, err = ParsePort("abc")
	assert.Error(t, err)
	_, err = ParsePort("70000")
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1572864))
}

func TestRunFFmpegMissingBinary(t *testing.T) {
	err := RunFFmpeg(t.Context(), "/nonexistent/ffmpeg-binary", []string{"-version"})
	assert.Error(t, err)
}
