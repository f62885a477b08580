// Package vision 提供模板匹配的便捷入口
//
// 主要功能:
//   - 单模板匹配: 最佳匹配、所有匹配
//   - 多模板/多背景并行匹配与竞争匹配 (见 NewMatcher)
//
// 基本用法:
//
//	result, err := vision.FindBestMatch("button.png", "screen.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result != nil {
//	    fmt.Printf("找到位置: %s\n", result.Rect)
//	}
//
//	m := vision.NewMatcher(vision.WithThreshold(0.85))
//	winners, err := m.Competitive(ctx, templates, screen)
package vision

import (
	"fmt"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// Version 版本号
const Version = "1.0.0"

// ============ 类型别名 ============

// Image 图像类型别名
type Image = cv.Image

// MatchResult 匹配结果类型别名
type MatchResult = cv.MatchResult

// Rect 矩形类型别名
type Rect = cv.Rect

// Point 坐标点类型别名
type Point = cv.Point

// ColorMode 颜色模式类型别名
type ColorMode = cv.ColorMode

// Matcher 并行匹配器类型别名
type Matcher = match.Matcher

// 颜色模式常量
const (
	ColorModeColor = cv.ColorModeColor
	ColorModeGray  = cv.ColorModeGray
)

// ============ 匹配便捷函数 ============

// FindBestMatch 在背景图中查找模板的最佳匹配
// template/background: 文件路径、image.Image、gocv.Mat 或 *Image
func FindBestMatch(template, background interface{}, opts ...Option) (*MatchResult, error) {
	tpl, bg, err := loadPair(template, background)
	if err != nil {
		return nil, err
	}
	defer tpl.Close()
	defer bg.Close()

	return cv.FindBestMatch(tpl, bg, buildCVOptions(applyOptions(opts...))...)
}

// FindAllMatches 在背景图中查找模板的所有匹配
func FindAllMatches(template, background interface{}, opts ...Option) ([]*MatchResult, error) {
	tpl, bg, err := loadPair(template, background)
	if err != nil {
		return nil, err
	}
	defer tpl.Close()
	defer bg.Close()

	return cv.FindMultipleMatches(tpl, bg, buildCVOptions(applyOptions(opts...))...)
}

// FindLocation 在背景图中查找模板，返回匹配区域中心点，未命中返回 nil
func FindLocation(template, background interface{}, opts ...Option) (*Point, error) {
	result, err := FindBestMatch(template, background, opts...)
	if err != nil || result == nil {
		return nil, err
	}
	center := result.Center()
	return &center, nil
}

// NewMatcher 按全局配置和选项创建并行匹配器
func NewMatcher(opts ...Option) *Matcher {
	return match.New(buildMatchOptions(applyOptions(opts...))...)
}

// ============ 工具函数 ============

// ReadImage 读取图像文件
func ReadImage(filename string) (*Image, error) {
	return cv.ReadImage(filename)
}

// ParseColorMode 解析颜色模式字符串
func ParseColorMode(s string) (ColorMode, error) {
	return cv.ParseColorMode(s)
}

func loadPair(template, background interface{}) (*Image, *Image, error) {
	tpl, err := cv.LoadImage("template", template)
	if err != nil {
		return nil, nil, fmt.Errorf("加载模板失败: %w", err)
	}
	bg, err := cv.LoadImage("background", background)
	if err != nil {
		tpl.Close()
		return nil, nil, fmt.Errorf("加载背景图失败: %w", err)
	}
	return tpl, bg, nil
}
