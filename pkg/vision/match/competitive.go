package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// Competitive 多个模板竞争同一张背景图：先提取所有模板的所有匹配，
// 再用 Resolve 去除互相重叠的候选，返回互不重叠的胜出结果（得分降序）
func (m *Matcher) Competitive(ctx context.Context, templates []*cv.Image, background *cv.Image) ([]*cv.MatchResult, error) {
	candidates, err := m.AllMatches(ctx, templates, background)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	winners := Resolve(candidates)
	m.log.LogEvent("NMS", true, elapsedMs(start),
		fmt.Sprintf("%d 个候选 -> %d 个胜出", len(candidates), len(winners)))
	return winners, nil
}

// Resolve 贪心非极大值抑制
// 按得分降序依次选出胜者，并移除所有与胜者矩形相交的剩余候选，直到候选为空。
// 返回结果两两不相交，顺序即选出顺序；不修改输入切片。
//
// 贪心结果不保证全局最优：一个高分胜者可能挡住两个总分更高的低分候选。
func Resolve(candidates []*cv.MatchResult) []*cv.MatchResult {
	remaining := make([]*cv.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			remaining = append(remaining, c)
		}
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		return ranksBefore(remaining[i], remaining[j])
	})

	var winners []*cv.MatchResult
	for len(remaining) > 0 {
		champion := remaining[0]
		winners = append(winners, champion)

		kept := remaining[:0]
		for _, competitor := range remaining[1:] {
			if !champion.Rect.Intersects(competitor.Rect) {
				kept = append(kept, competitor)
			}
		}
		remaining = kept
	}
	return winners
}
