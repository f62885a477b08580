package cv

// DefaultColorMode 默认颜色模式
const DefaultColorMode = ColorModeGray

// matchOptions 单次匹配配置
type matchOptions struct {
	threshold  float64
	mode       ColorMode
	maxResults int
}

// TemplateOption 匹配选项
type TemplateOption func(*matchOptions)

func applyTemplateOptions(opts ...TemplateOption) *matchOptions {
	o := &matchOptions{
		threshold: DefaultThreshold,
		mode:      DefaultColorMode,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithTemplateThreshold 设置阈值
func WithTemplateThreshold(threshold float64) TemplateOption {
	return func(o *matchOptions) {
		o.threshold = threshold
	}
}

// WithTemplateMode 设置颜色模式
func WithTemplateMode(mode ColorMode) TemplateOption {
	return func(o *matchOptions) {
		o.mode = mode
	}
}

// WithTemplateMaxResults 设置多目标匹配的最大结果数 (<= 0 表示不限)
func WithTemplateMaxResults(n int) TemplateOption {
	return func(o *matchOptions) {
		o.maxResults = n
	}
}

// FindBestMatch 便捷函数：在背景图中查找模板的最佳匹配
// 未指定阈值时使用 DefaultThreshold，未达到阈值返回 nil, nil
func FindBestMatch(template, background *Image, opts ...TemplateOption) (*MatchResult, error) {
	o := applyTemplateOptions(opts...)
	return NewTemplateMatching(template, background, o.threshold, o.mode).FindBestResult()
}

// FindMultipleMatches 便捷函数：在背景图中查找模板的所有匹配
func FindMultipleMatches(template, background *Image, opts ...TemplateOption) ([]*MatchResult, error) {
	o := applyTemplateOptions(opts...)
	m := NewTemplateMatching(template, background, o.threshold, o.mode)
	m.SetMaxResults(o.maxResults)
	return m.FindAllResults()
}
