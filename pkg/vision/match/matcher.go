// Package match 在多个模板与多张背景图之间并行执行模板匹配，
// 并按不同策略汇总结果（每模板最佳、全局最佳、任意命中、每背景最佳等）。
//
// 所有操作都不修改输入图像：背景图在并行前统一归一化一次，
// 每个 (模板, 背景) 组合独立计算，互不共享可变状态。
package match

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// Matcher 并行模板匹配器
type Matcher struct {
	threshold  float64
	mode       cv.ColorMode
	workers    int
	maxResults int
	log        *logger.Logger
}

// New 创建匹配器，默认阈值 cv.DefaultThreshold，默认颜色模式 cv.DefaultColorMode
func New(opts ...Option) *Matcher {
	m := &Matcher{
		threshold: cv.DefaultThreshold,
		mode:      cv.DefaultColorMode,
		workers:   DefaultWorkers(),
		log:       logger.Default().Named("match"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold 返回匹配阈值
func (m *Matcher) Threshold() float64 { return m.threshold }

// Mode 返回颜色模式
func (m *Matcher) Mode() cv.ColorMode { return m.mode }

// Workers 返回最大并行协程数
func (m *Matcher) Workers() int { return m.workers }

// BestPerTemplate 每个模板在背景图中的最佳匹配，未命中的模板不出现在结果中
// 结果顺序与 templates 顺序一致
func (m *Matcher) BestPerTemplate(ctx context.Context, templates []*cv.Image, background *cv.Image) ([]*cv.MatchResult, error) {
	start := time.Now()
	set, err := m.prepare(templates, []*cv.Image{background})
	if err != nil {
		return nil, err
	}
	defer set.release()

	slots := make([]*cv.MatchResult, len(set.templates))
	err = m.fanOut(ctx, len(set.templates), func(i int) error {
		r, err := m.best(set.templates[i], set.backgrounds[0])
		slots[i] = r
		return err
	})
	if err != nil {
		m.log.LogEvent("BEST", false, elapsedMs(start), err.Error())
		return nil, err
	}

	results := compact(slots)
	m.log.LogEvent("BEST", true, elapsedMs(start),
		fmt.Sprintf("%d/%d 个模板命中 %s", len(results), len(templates), background.ID()))
	return results, nil
}

// FirstAny 返回任意一个命中的模板结果，命中后取消其余任务
//
// 结果不确定：并行时先完成的任务胜出。需要确定结果时使用 BestOverall。
func (m *Matcher) FirstAny(ctx context.Context, templates []*cv.Image, background *cv.Image) (*cv.MatchResult, error) {
	start := time.Now()
	set, err := m.prepare(templates, []*cv.Image{background})
	if err != nil {
		return nil, err
	}
	defer set.release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var winner atomic.Pointer[cv.MatchResult]
	err = m.fanOutContext(runCtx, len(set.templates), func(i int) error {
		r, err := m.best(set.templates[i], set.backgrounds[0])
		if err != nil {
			return err
		}
		if r != nil && winner.CompareAndSwap(nil, r) {
			cancel()
		}
		return nil
	})

	if w := winner.Load(); w != nil {
		m.log.LogEvent("ANY", true, elapsedMs(start), fmt.Sprintf("模板 %s 命中 %s", w.TemplateID, w.BackgroundID))
		return w, nil
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.log.LogEvent("ANY", false, elapsedMs(start), err.Error())
		return nil, err
	}
	m.log.LogEvent("ANY", true, elapsedMs(start), "无命中")
	return nil, nil
}

// BestOverall 所有模板中得分最高的匹配，无命中时返回 nil, nil
// 得分相同时按 TemplateID 升序选择
func (m *Matcher) BestOverall(ctx context.Context, templates []*cv.Image, background *cv.Image) (*cv.MatchResult, error) {
	results, err := m.BestPerTemplate(ctx, templates, background)
	if err != nil {
		return nil, err
	}
	return Best(results), nil
}

// AllMatches 每个模板在背景图中的所有匹配（多峰提取），结果展平
func (m *Matcher) AllMatches(ctx context.Context, templates []*cv.Image, background *cv.Image) ([]*cv.MatchResult, error) {
	return m.AllMatchesInBackgrounds(ctx, templates, []*cv.Image{background})
}

// AllMatchesInBackgrounds 所有 (模板, 背景) 组合的所有匹配，结果按背景、模板顺序展平
func (m *Matcher) AllMatchesInBackgrounds(ctx context.Context, templates, backgrounds []*cv.Image) ([]*cv.MatchResult, error) {
	start := time.Now()
	set, err := m.prepare(templates, backgrounds)
	if err != nil {
		return nil, err
	}
	defer set.release()

	nt := len(set.templates)
	slots := make([][]*cv.MatchResult, nt*len(set.backgrounds))
	err = m.fanOut(ctx, len(slots), func(i int) error {
		rs, err := m.all(set.templates[i%nt], set.backgrounds[i/nt])
		slots[i] = rs
		return err
	})
	if err != nil {
		m.log.LogEvent("ALL", false, elapsedMs(start), err.Error())
		return nil, err
	}

	var results []*cv.MatchResult
	for _, rs := range slots {
		results = append(results, rs...)
	}
	m.log.LogEvent("ALL", true, elapsedMs(start),
		fmt.Sprintf("%d 个模板 x %d 张背景，共 %d 个匹配", nt, len(set.backgrounds), len(results)))
	return results, nil
}

// BestPerBackground 单个模板在每张背景图中的最佳匹配，结果顺序与 backgrounds 一致
func (m *Matcher) BestPerBackground(ctx context.Context, template *cv.Image, backgrounds []*cv.Image) ([]*cv.MatchResult, error) {
	start := time.Now()
	set, err := m.prepare([]*cv.Image{template}, backgrounds)
	if err != nil {
		return nil, err
	}
	defer set.release()

	slots := make([]*cv.MatchResult, len(set.backgrounds))
	err = m.fanOut(ctx, len(set.backgrounds), func(i int) error {
		r, err := m.best(set.templates[0], set.backgrounds[i])
		slots[i] = r
		return err
	})
	if err != nil {
		m.log.LogEvent("PBG", false, elapsedMs(start), err.Error())
		return nil, err
	}

	results := compact(slots)
	m.log.LogEvent("PBG", true, elapsedMs(start),
		fmt.Sprintf("模板 %s 命中 %d/%d 张背景", template.ID(), len(results), len(backgrounds)))
	return results, nil
}

// BestInBackgrounds 单个模板在所有背景图中得分最高的匹配，无命中时返回 nil, nil
func (m *Matcher) BestInBackgrounds(ctx context.Context, template *cv.Image, backgrounds []*cv.Image) (*cv.MatchResult, error) {
	results, err := m.BestPerBackground(ctx, template, backgrounds)
	if err != nil {
		return nil, err
	}
	return Best(results), nil
}

// Best 返回得分最高的结果，得分相同时按 TemplateID、BackgroundID 升序选择
func Best(results []*cv.MatchResult) *cv.MatchResult {
	var best *cv.MatchResult
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil || ranksBefore(r, best) {
			best = r
		}
	}
	return best
}

// ranksBefore 排序规则：得分降序，其次 TemplateID、BackgroundID 升序
func ranksBefore(a, b *cv.MatchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TemplateID != b.TemplateID {
		return a.TemplateID < b.TemplateID
	}
	return a.BackgroundID < b.BackgroundID
}

func (m *Matcher) best(template, background *cv.Image) (*cv.MatchResult, error) {
	tm := cv.NewTemplateMatching(template, background, m.threshold, m.mode)
	tm.SetLogger(m.log)
	return tm.FindBestResult()
}

func (m *Matcher) all(template, background *cv.Image) ([]*cv.MatchResult, error) {
	tm := cv.NewTemplateMatching(template, background, m.threshold, m.mode)
	tm.SetLogger(m.log)
	tm.SetMaxResults(m.maxResults)
	return tm.FindAllResults()
}

// fanOut 并行执行 n 个任务，最多 m.workers 个协程
// 首个错误取消尚未开始的任务并返回该错误
func (m *Matcher) fanOut(ctx context.Context, n int, fn func(i int) error) error {
	if err := m.fanOutContext(ctx, n, fn); err != nil {
		return err
	}
	return ctx.Err()
}

// fanOutContext 同 fanOut，但 ctx 取消时直接返回 nil（由调用方判断原因）
func (m *Matcher) fanOutContext(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.workers))
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// imageSet 已归一化的模板和背景图
type imageSet struct {
	templates   []*cv.Image
	backgrounds []*cv.Image
	releases    []func()
}

func (s *imageSet) release() {
	for _, r := range s.releases {
		r()
	}
}

// prepare 在并行前检查所有组合的尺寸，并把每张图归一化一次
func (m *Matcher) prepare(templates, backgrounds []*cv.Image) (*imageSet, error) {
	if !m.mode.Valid() {
		return nil, fmt.Errorf("%w: %d", cv.ErrUnknownColorMode, int(m.mode))
	}
	for _, bg := range backgrounds {
		for _, tpl := range templates {
			if err := cv.CheckMatchable(tpl, bg); err != nil {
				return nil, err
			}
		}
	}

	set := &imageSet{}
	normalize := func(images []*cv.Image) ([]*cv.Image, error) {
		out := make([]*cv.Image, len(images))
		for i, img := range images {
			n, release, err := cv.NormalizeShared(img, m.mode)
			set.releases = append(set.releases, release)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	var err error
	if set.templates, err = normalize(templates); err != nil {
		set.release()
		return nil, err
	}
	if set.backgrounds, err = normalize(backgrounds); err != nil {
		set.release()
		return nil, err
	}
	return set, nil
}

func compact(slots []*cv.MatchResult) []*cv.MatchResult {
	results := make([]*cv.MatchResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	return results
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
