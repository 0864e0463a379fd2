package processors

import (
	"sort"

	"videoSearch/core"
)

// DeduplicateByVideo 每个视频只保留一条结果
//
// 同一视频有多条结果时以最高分为锚点，分数不低于锚点 MergeScoreRatio 倍
// 且时间间隔不超过 MergeWindowMs 的结果并入锚点，其余丢弃。
// 只与锚点比较，不做传递合并。输入切片不会被修改。
func DeduplicateByVideo(results []core.ScoredResult, policy core.SearchPolicy) []core.ScoredResult {
	groups := make(map[string][]core.ScoredResult)
	var order []string
	for _, r := range results {
		if _, ok := groups[r.VideoName]; !ok {
			order = append(order, r.VideoName)
		}
		groups[r.VideoName] = append(groups[r.VideoName], r)
	}

	final := make([]core.ScoredResult, 0, len(order))
	for _, video := range order {
		segments := groups[video]
		if len(segments) == 1 {
			final = append(final, segments[0])
			continue
		}
		final = append(final, mergeVideoSegments(segments, policy))
	}

	sort.SliceStable(final, func(i, j int) bool { return final[i].Score > final[j].Score })
	return final
}

// mergeVideoSegments segments 为本函数私有副本，可以原地排序
// 间隔按锚点当前（已扩展）的时间范围计算
func mergeVideoSegments(segments []core.ScoredResult, policy core.SearchPolicy) core.ScoredResult {
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Score > segments[j].Score })

	best := segments[0]

	for _, seg := range segments[1:] {
		if seg.Score < best.Score*policy.MergeScoreRatio {
			continue
		}
		if timeGap(best.StartTime, best.EndTime, seg.StartTime, seg.EndTime) > policy.MergeWindowMs {
			continue
		}

		best.StartTime = min(best.StartTime, seg.StartTime)
		best.EndTime = max(best.EndTime, seg.EndTime)

		if seg.Description != best.Description {
			best.Description += " | " + seg.Description
		}
		if seg.Transcript != best.Transcript {
			switch {
			case best.Transcript != "" && seg.Transcript != "":
				best.Transcript += " " + seg.Transcript
			case seg.Transcript != "":
				best.Transcript = seg.Transcript
			}
		}
	}
	return best
}

// timeGap 两段之间的最小交叉距离
func timeGap(bestStart, bestEnd, segStart, segEnd int64) int64 {
	return min(abs64(segStart-bestEnd), abs64(bestStart-segEnd))
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
