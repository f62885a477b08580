package job

import (
	"context"
	"fmt"
	"time"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// Report 任务执行结果
type Report struct {
	Policy    Policy            `json:"policy"`
	Results   []*cv.MatchResult `json:"results"`
	ElapsedMs float64           `json:"elapsed_ms"`
}

// Run 加载清单中的图像并按策略执行匹配
func Run(ctx context.Context, j *Job, m *match.Matcher) (*Report, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	templates, err := j.loadAll(j.Templates)
	if err != nil {
		return nil, err
	}
	defer closeAll(templates)

	backgrounds, err := j.loadAll(j.Backgrounds)
	if err != nil {
		return nil, err
	}
	defer closeAll(backgrounds)

	results, err := Execute(ctx, m, j.Policy, templates, backgrounds)
	if err != nil {
		return nil, err
	}
	return &Report{
		Policy:    j.Policy,
		Results:   results,
		ElapsedMs: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// Execute 按策略分派到 Matcher，单结果策略未命中时返回空切片
func Execute(ctx context.Context, m *match.Matcher, policy Policy, templates, backgrounds []*cv.Image) ([]*cv.MatchResult, error) {
	if policy.singleBackground() && len(backgrounds) != 1 {
		return nil, fmt.Errorf("策略 %s 需要一张背景图, 实际 %d 张", policy, len(backgrounds))
	}
	if policy.singleTemplate() && len(templates) != 1 {
		return nil, fmt.Errorf("策略 %s 需要一个模板, 实际 %d 个", policy, len(templates))
	}

	switch policy {
	case PolicyBest:
		return one(m.BestOverall(ctx, templates, backgrounds[0]))
	case PolicyFirst:
		return one(m.FirstAny(ctx, templates, backgrounds[0]))
	case PolicyBestPerTemplate:
		return m.BestPerTemplate(ctx, templates, backgrounds[0])
	case PolicyAll:
		return m.AllMatches(ctx, templates, backgrounds[0])
	case PolicyAllBackgrounds:
		return m.AllMatchesInBackgrounds(ctx, templates, backgrounds)
	case PolicyPerBackground:
		return m.BestPerBackground(ctx, templates[0], backgrounds)
	case PolicyBestBackground:
		return one(m.BestInBackgrounds(ctx, templates[0], backgrounds))
	case PolicyCompetitive:
		return m.Competitive(ctx, templates, backgrounds[0])
	default:
		return nil, fmt.Errorf("未知策略: %q", policy)
	}
}

func one(r *cv.MatchResult, err error) ([]*cv.MatchResult, error) {
	if err != nil {
		return nil, err
	}
	if r == nil {
		return []*cv.MatchResult{}, nil
	}
	return []*cv.MatchResult{r}, nil
}

func (j *Job) loadAll(entries []Entry) ([]*cv.Image, error) {
	images := make([]*cv.Image, 0, len(entries))
	for _, e := range entries {
		var (
			img *cv.Image
			err error
		)
		if e.ID != "" {
			img, err = cv.ReadImageAs(e.ID, j.resolve(e.Path))
		} else {
			img, err = cv.ReadImage(j.resolve(e.Path))
		}
		if err != nil {
			closeAll(images)
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func closeAll(images []*cv.Image) {
	for _, img := range images {
		img.Close()
	}
}
