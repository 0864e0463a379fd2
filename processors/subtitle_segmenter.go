package processors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"videoSearch/core"
)

// SRT 时间轴行: HH:MM:SS,mmm --> HH:MM:SS,mmm
var timecodeLine = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)

type subtitleBlock struct {
	start int64
	end   int64
	text  string
}

// ParseSubtitles 把SRT字幕按句末标点合并为句子级片段
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
//
// 连续字幕块拼接成一句，直到某块以 . ? ! 结尾或到达最后一块。
// 不符合格式的文本被忽略，不返回错误。
func ParseSubtitles(raw string) []core.SubtitleSegment {
	segments := []core.SubtitleSegment{}
	blocks := parseSubtitleBlocks(raw)
	if len(blocks) == 0 {
		return segments
	}

	var sentence strings.Builder
	var start int64
	open := false

	for i, b := range blocks {
		if !open {
			start = b.start
			open = true
			sentence.Reset()
		}
		if sentence.Len() > 0 && b.text != "" {
			sentence.WriteString(" ")
		}
		sentence.WriteString(b.text)

		if endsSentence(b.text) || i == len(blocks)-1 {
			segments = append(segments, core.SubtitleSegment{
				StartTime: start,
				EndTime:   b.end,
				Sentence:  sentence.String(),
			})
			open = false
		}
	}

	return segments
}

func parseSubtitleBlocks(raw string) []subtitleBlock {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	var blocks []subtitleBlock

	i := 0
	for i < len(lines) {
		if !isBlockHeader(lines, i) {
			i++
			continue
		}

		m := timecodeLine.FindStringSubmatch(strings.TrimSpace(lines[i+1]))
		start, errStart := TimecodeToMs(m[1])
		end, errEnd := TimecodeToMs(m[2])

		j := i + 2
		var text []string
		for j < len(lines) && !isBlockHeader(lines, j) {
			if t := strings.TrimSpace(lines[j]); t != "" {
				text = append(text, t)
			}
			j++
		}

		if errStart == nil && errEnd == nil {
			blocks = append(blocks, subtitleBlock{
				start: start,
				end:   end,
				text:  strings.Join(text, " "),
			})
		}
		i = j
	}

	return blocks
}

// 序号行后紧跟时间轴行
func isBlockHeader(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	return isDigitOnly(strings.TrimSpace(lines[i])) && timecodeLine.MatchString(strings.TrimSpace(lines[i+1]))
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasSuffix(t, ".") || strings.HasSuffix(t, "?") || strings.HasSuffix(t, "!")
}

// TimecodeToMs HH:MM:SS,mmm 转毫秒
func TimecodeToMs(tc string) (int64, error) {
	hms, msPart, ok := strings.Cut(strings.TrimSpace(tc), ",")
	if !ok {
		return 0, fmt.Errorf("invalid timecode %q", tc)
	}
	parts := strings.Split(hms, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timecode %q", tc)
	}

	values := make([]int64, 0, 4)
	for _, p := range append(parts, msPart) {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timecode %q", tc)
		}
		values = append(values, v)
	}

	return values[0]*3600000 + values[1]*60000 + values[2]*1000 + values[3], nil
}

func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
