// Package peak 从相似度得分图中提取峰值
//
// 得分图由 cv.Score 生成，每个单元对应模板左上角在背景图中的一个偏移位置。
// FindBest 返回全局最大值，FindAll 迭代提取所有达到阈值的峰值，
// 每次提取后屏蔽以峰值为中心、模板大小的区域，避免同一目标被重复报告。
package peak

import (
	"fmt"
	"image"
	"math"
)

// ScoreMap 二维得分图（行优先存储）
type ScoreMap struct {
	rows, cols int
	data       []float64
}

// NewScoreMap 创建 rows x cols 的得分图，初始值为 0
func NewScoreMap(rows, cols int) *ScoreMap {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	return &ScoreMap{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// NewScoreMapFrom 用行优先数据创建得分图，数据长度必须为 rows*cols
func NewScoreMapFrom(rows, cols int, data []float64) (*ScoreMap, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("得分图数据长度 %d 与尺寸 %dx%d 不符", len(data), rows, cols)
	}
	return &ScoreMap{rows: rows, cols: cols, data: data}, nil
}

// Rows 返回行数
func (m *ScoreMap) Rows() int { return m.rows }

// Cols 返回列数
func (m *ScoreMap) Cols() int { return m.cols }

// At 返回 (row, col) 处的得分
func (m *ScoreMap) At(row, col int) float64 {
	return m.data[row*m.cols+col]
}

// Set 设置 (row, col) 处的得分
func (m *ScoreMap) Set(row, col int, v float64) {
	m.data[row*m.cols+col] = v
}

// Peak 峰值位置与得分，Loc.X 为列，Loc.Y 为行
type Peak struct {
	Loc   image.Point
	Score float64
}

// FindBest 返回全局最大值，得分低于阈值时返回 false（阈值为 NaN 时始终返回 false）
// 多个相同最大值时取行优先扫描的第一个
func FindBest(m *ScoreMap, threshold float64) (Peak, bool) {
	p, ok := maxLoc(m, nil)
	if !ok || !(p.Score >= threshold) {
		return Peak{}, false
	}
	return p, true
}

// FindAll 迭代提取所有不低于阈值的峰值
// size 为模板尺寸，用于确定每次提取后的屏蔽区域；输入得分图不会被修改
func FindAll(m *ScoreMap, threshold float64, size image.Point) []Peak {
	return FindAllN(m, threshold, size, 0)
}

// FindAllN 同 FindAll，最多返回 limit 个峰值 (limit <= 0 表示不限)
//
// 贪心算法：相邻目标间距小于一个模板宽度时，屏蔽区域可能吞掉相邻峰值。
func FindAllN(m *ScoreMap, threshold float64, size image.Point, limit int) []Peak {
	suppressed := make([]bool, len(m.data))
	var peaks []Peak
	for limit <= 0 || len(peaks) < limit {
		p, ok := maxLoc(m, suppressed)
		if !ok || !(p.Score >= threshold) {
			break
		}
		peaks = append(peaks, p)
		suppress(m, suppressed, p.Loc, size)
	}
	return peaks
}

// maxLoc 行优先扫描未屏蔽单元，返回第一个最大值；NaN 单元永不选中
func maxLoc(m *ScoreMap, suppressed []bool) (Peak, bool) {
	best := Peak{Score: math.Inf(-1)}
	found := false
	for i, v := range m.data {
		if suppressed != nil && suppressed[i] {
			continue
		}
		if math.IsNaN(v) {
			continue
		}
		if !found || v > best.Score {
			best = Peak{Loc: image.Pt(i%m.cols, i/m.cols), Score: v}
			found = true
		}
	}
	return best, found
}

// suppress 屏蔽以 loc 为中心、模板大小的区域（裁剪到得分图范围内）
// 区域为 [loc-w/2, loc-w/2+w-1]，偶数宽度时左上多一格；尺寸至少为 1，峰值本身总被屏蔽
func suppress(m *ScoreMap, suppressed []bool, loc, size image.Point) {
	w, h := max(size.X, 1), max(size.Y, 1)
	left, top := loc.X-w/2, loc.Y-h/2
	x0, x1 := max(0, left), min(m.cols-1, left+w-1)
	y0, y1 := max(0, top), min(m.rows-1, top+h-1)
	for y := y0; y <= y1; y++ {
		row := y * m.cols
		for x := x0; x <= x1; x++ {
			suppressed[row+x] = true
		}
	}
}
