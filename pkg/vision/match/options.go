package match

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// Option 配置选项函数类型
type Option func(*Matcher)

// WithThreshold 设置匹配阈值
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// WithColorMode 设置匹配前统一的颜色模式
func WithColorMode(mode cv.ColorMode) Option {
	return func(m *Matcher) {
		m.mode = mode
	}
}

// WithWorkers 设置并行匹配的最大协程数 (<= 0 使用默认值)
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithMaxResults 设置每个 (模板, 背景) 组合多目标匹配的最大结果数 (<= 0 表示不限)
func WithMaxResults(n int) Option {
	return func(m *Matcher) {
		m.maxResults = n
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.log = l
		}
	}
}

// DefaultWorkers 默认协程数：逻辑 CPU 数
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
