package vision

import (
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// Options 全局配置选项
type Options struct {
	Threshold  float64      // 匹配阈值，默认 0.9
	ColorMode  cv.ColorMode // 颜色模式，默认灰度
	Workers    int          // 并行协程数，0 表示逻辑 CPU 数
	MaxResults int          // 多目标匹配最大结果数，0 表示不限
}

// DefaultOptions 默认配置
var DefaultOptions = Options{
	Threshold:  cv.DefaultThreshold,
	ColorMode:  cv.DefaultColorMode,
	Workers:    0,
	MaxResults: 0,
}

// globalOptions 全局配置实例
var globalOptions = DefaultOptions

// GetOptions 获取当前全局配置
func GetOptions() *Options {
	return &globalOptions
}

// SetOptions 设置全局配置
func SetOptions(opts Options) {
	globalOptions = opts
}

// ResetOptions 重置为默认配置
func ResetOptions() {
	globalOptions = DefaultOptions
}

// Option 配置选项函数类型
type Option func(*matchConfig)

// matchConfig 匹配时的临时配置
type matchConfig struct {
	threshold  float64
	mode       cv.ColorMode
	workers    int
	maxResults int
}

// defaultMatchConfig 默认匹配配置
func defaultMatchConfig() *matchConfig {
	return &matchConfig{
		threshold:  globalOptions.Threshold,
		mode:       globalOptions.ColorMode,
		workers:    globalOptions.Workers,
		maxResults: globalOptions.MaxResults,
	}
}

func applyOptions(opts ...Option) *matchConfig {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithThreshold 设置匹配阈值
func WithThreshold(threshold float64) Option {
	return func(c *matchConfig) {
		c.threshold = threshold
	}
}

// WithColorMode 设置颜色模式
func WithColorMode(mode cv.ColorMode) Option {
	return func(c *matchConfig) {
		c.mode = mode
	}
}

// WithWorkers 设置并行协程数
func WithWorkers(n int) Option {
	return func(c *matchConfig) {
		c.workers = n
	}
}

// WithMaxResults 设置多目标匹配最大结果数
func WithMaxResults(n int) Option {
	return func(c *matchConfig) {
		c.maxResults = n
	}
}

// buildCVOptions 构建 cv 选项
func buildCVOptions(cfg *matchConfig) []cv.TemplateOption {
	return []cv.TemplateOption{
		cv.WithTemplateThreshold(cfg.threshold),
		cv.WithTemplateMode(cfg.mode),
		cv.WithTemplateMaxResults(cfg.maxResults),
	}
}

// buildMatchOptions 构建 match 选项
func buildMatchOptions(cfg *matchConfig) []match.Option {
	return []match.Option{
		match.WithThreshold(cfg.threshold),
		match.WithColorMode(cfg.mode),
		match.WithWorkers(cfg.workers),
		match.WithMaxResults(cfg.maxResults),
	}
}
