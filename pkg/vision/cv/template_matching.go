package cv

import (
	"image"
	"time"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/peak"
)

// TemplateMatching 单个模板与单张背景图的模板匹配器
// 匹配前两张图都会按 mode 归一化，输入图像不会被修改
type TemplateMatching struct {
	template   *Image
	background *Image
	threshold  float64
	mode       ColorMode
	maxResults int
	log        *logger.Logger
}

// NewTemplateMatching 创建模板匹配器
func NewTemplateMatching(template, background *Image, threshold float64, mode ColorMode) *TemplateMatching {
	return &TemplateMatching{
		template:   template,
		background: background,
		threshold:  threshold,
		mode:       mode,
		log:        logger.Default(),
	}
}

// SetMaxResults 设置 FindAllResults 最大结果数 (<= 0 表示不限)
func (t *TemplateMatching) SetMaxResults(n int) {
	t.maxResults = n
}

// SetLogger 设置日志记录器，nil 时保持不变
func (t *TemplateMatching) SetLogger(l *logger.Logger) {
	if l != nil {
		t.log = l
	}
}

// FindBestResult 查找最佳匹配结果，未达到阈值时返回 nil, nil
func (t *TemplateMatching) FindBestResult() (*MatchResult, error) {
	startTime := time.Now()

	scores, err := t.getTemplateResultMatrix()
	if err != nil {
		return nil, err
	}

	p, ok := peak.FindBest(scores, t.threshold)
	if !ok {
		return nil, nil
	}

	result := t.newResult(p)
	result.Time = elapsedMs(startTime)
	return result, nil
}

// FindAllResults 查找所有达到阈值的匹配结果
func (t *TemplateMatching) FindAllResults() ([]*MatchResult, error) {
	startTime := time.Now()

	scores, err := t.getTemplateResultMatrix()
	if err != nil {
		return nil, err
	}

	size := image.Pt(t.template.Width(), t.template.Height())
	peaks := peak.FindAllN(scores, t.threshold, size, t.maxResults)

	elapsed := elapsedMs(startTime)
	results := make([]*MatchResult, 0, len(peaks))
	for _, p := range peaks {
		r := t.newResult(p)
		r.Time = elapsed
		results = append(results, r)
	}

	t.log.Debug("模板 %s 在 %s 中找到 %d 个匹配 (阈值 %.2f)",
		t.template.ID(), t.background.ID(), len(results), t.threshold)
	return results, nil
}

// getTemplateResultMatrix 检查尺寸、统一颜色模式后计算得分图
func (t *TemplateMatching) getTemplateResultMatrix() (*peak.ScoreMap, error) {
	if err := CheckMatchable(t.template, t.background); err != nil {
		return nil, err
	}

	tpl, releaseTpl, err := NormalizeShared(t.template, t.mode)
	defer releaseTpl()
	if err != nil {
		return nil, err
	}
	bg, releaseBg, err := NormalizeShared(t.background, t.mode)
	defer releaseBg()
	if err != nil {
		return nil, err
	}

	return Score(bg, tpl)
}

func (t *TemplateMatching) newResult(p peak.Peak) *MatchResult {
	rect := NewRect(p.Loc.X, p.Loc.Y, t.template.Width(), t.template.Height())
	return newMatchResult(rect, p.Score, t.threshold, t.template.ID(), t.background.ID())
}

// elapsedMs 自 start 起的耗时（毫秒，保留微秒精度）
func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
