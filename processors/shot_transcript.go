package processors

import (
	"sort"
	"strings"

	"videoSearch/core"
)

// 句子与镜头至少重叠的毫秒数
const minTranscriptOverlapMs = 500

// ShotTranscript 提取与镜头时间段重叠不少于500ms的句子，以 "; " 追加
// segments 需按开始时间升序
func ShotTranscript(startTime, endTime int64, segments []core.SubtitleSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.StartTime >= endTime {
			break
		}
		if seg.EndTime <= startTime {
			continue
		}
		overlapStart := max(seg.StartTime, startTime)
		overlapEnd := min(seg.EndTime, endTime)
		if overlapEnd-overlapStart >= minTranscriptOverlapMs {
			b.WriteString(seg.Sentence)
			b.WriteString("; ")
		}
	}
	return b.String()
}

// NormalizeFigureNames 按集合语义整理逗号分隔的人名列表
// 去空白、去空项、去重、排序后以 ", " 连接
func NormalizeFigureNames(lists ...string) string {
	seen := make(map[string]struct{})
	var names []string
	for _, list := range lists {
		for _, name := range core.SplitNames(list) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
