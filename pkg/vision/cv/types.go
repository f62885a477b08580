package cv

import (
	"fmt"
	"image"
)

// DefaultThreshold 默认匹配阈值（调用方未指定阈值时使用）
const DefaultThreshold = 0.9

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect 表示轴对齐矩形区域（背景图坐标系）
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect 从左上角坐标和宽高创建矩形
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Center 返回矩形中心点
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Intersects 判断两个矩形是否相交
// 两个矩形在两个轴上的投影都重叠时才算相交，仅边缘接触（面积为 0）不算
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width &&
		r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height &&
		r.Y+r.Height > o.Y
}

// ToImageRect 转换为 image.Rectangle
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// String 返回字符串表示
func (r Rect) String() string {
	return fmt.Sprintf("{%d, %d, %dx%d}", r.X, r.Y, r.Width, r.Height)
}

// MatchResult 图像匹配结果
type MatchResult struct {
	// Rect 匹配区域（背景图坐标）
	Rect Rect `json:"rect"`
	// Score 匹配得分 (TM_CCOEFF_NORMED, 约 [-1, 1])
	Score float64 `json:"score"`
	// Threshold 产生该结果时使用的置信度阈值
	Threshold float64 `json:"threshold"`
	// TemplateID 命中的模板标识
	TemplateID string `json:"template_id"`
	// BackgroundID 命中的背景图标识
	BackgroundID string `json:"background_id"`
	// Time 匹配耗时（毫秒）
	Time float64 `json:"time,omitempty"`
}

// newMatchResult 创建匹配结果，得分未达到阈值（或任一为 NaN）时返回 nil
func newMatchResult(rect Rect, score, threshold float64, templateID, backgroundID string) *MatchResult {
	if !(score >= threshold) {
		return nil
	}
	return &MatchResult{
		Rect:         rect,
		Score:        score,
		Threshold:    threshold,
		TemplateID:   templateID,
		BackgroundID: backgroundID,
	}
}

// IsMatch 得分是否达到阈值
func (m *MatchResult) IsMatch() bool {
	return m.Score >= m.Threshold
}

// Center 返回匹配区域中心点
func (m *MatchResult) Center() Point {
	return m.Rect.Center()
}

// String 返回字符串表示
func (m *MatchResult) String() string {
	return fmt.Sprintf("MatchResult[score=%.4f rect=%s threshold=%.4f template=%s background=%s match=%v]",
		m.Score, m.Rect, m.Threshold, m.TemplateID, m.BackgroundID, m.IsMatch())
}
