// Package job 读取 YAML 匹配任务清单并按指定策略执行
//
// 清单示例:
//
//	policy: competitive
//	mode: gray
//	threshold: 0.85
//	templates:
//	  - id: ok
//	    path: ok.png
//	backgrounds:
//	  - path: screen.png
//
// 相对路径以清单所在目录为基准。
package job

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// Policy 汇总策略
type Policy string

const (
	PolicyBest            Policy = "best"              // 所有模板中的最佳匹配
	PolicyFirst           Policy = "first"             // 任意一个命中
	PolicyBestPerTemplate Policy = "best-per-template" // 每个模板的最佳匹配
	PolicyAll             Policy = "all"               // 每个模板的所有匹配
	PolicyAllBackgrounds  Policy = "all-backgrounds"   // 所有模板在所有背景图中的所有匹配
	PolicyPerBackground   Policy = "per-background"    // 单模板在每张背景图中的最佳匹配
	PolicyBestBackground  Policy = "best-background"   // 单模板在所有背景图中的最佳匹配
	PolicyCompetitive     Policy = "competitive"       // 多模板竞争，去除重叠
)

// Policies 所有支持的策略
var Policies = []Policy{
	PolicyBest, PolicyFirst, PolicyBestPerTemplate, PolicyAll,
	PolicyAllBackgrounds, PolicyPerBackground, PolicyBestBackground, PolicyCompetitive,
}

// ParsePolicy 解析策略字符串
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("未知策略: %q", s)
}

// singleBackground 只接受一张背景图的策略
func (p Policy) singleBackground() bool {
	switch p {
	case PolicyBest, PolicyFirst, PolicyBestPerTemplate, PolicyAll, PolicyCompetitive:
		return true
	}
	return false
}

// singleTemplate 只接受一个模板的策略
func (p Policy) singleTemplate() bool {
	return p == PolicyPerBackground || p == PolicyBestBackground
}

// Entry 清单中的一张图像
type Entry struct {
	ID   string `yaml:"id,omitempty"`
	Path string `yaml:"path"`
}

// Job 匹配任务清单
type Job struct {
	Policy      Policy   `yaml:"policy"`
	Mode        string   `yaml:"mode,omitempty"`
	Threshold   *float64 `yaml:"threshold,omitempty"`
	Workers     int      `yaml:"workers,omitempty"`
	MaxResults  int      `yaml:"max_results,omitempty"`
	Templates   []Entry  `yaml:"templates"`
	Backgrounds []Entry  `yaml:"backgrounds"`

	// dir 相对路径的基准目录
	dir string
}

// Load 从文件读取清单
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取任务清单失败: %w", err)
	}
	j, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	j.dir = filepath.Dir(path)
	return j, nil
}

// Parse 解析清单内容，相对路径以当前目录为基准
func Parse(data []byte) (*Job, error) {
	var j Job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("解析任务清单失败: %w", err)
	}
	if j.Policy == "" {
		j.Policy = PolicyBest
	}
	if p, err := ParsePolicy(string(j.Policy)); err == nil {
		j.Policy = p
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Validate 检查清单
func (j *Job) Validate() error {
	var errs []error
	if _, err := ParsePolicy(string(j.Policy)); err != nil {
		errs = append(errs, err)
	}
	if j.Mode != "" {
		if _, err := cv.ParseColorMode(j.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	if j.Threshold != nil && (math.IsNaN(*j.Threshold) || *j.Threshold < -1 || *j.Threshold > 1) {
		errs = append(errs, fmt.Errorf("阈值超出范围 [-1, 1]: %v", *j.Threshold))
	}
	if j.Workers < 0 {
		errs = append(errs, fmt.Errorf("协程数不能为负: %d", j.Workers))
	}
	if j.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("最大结果数不能为负: %d", j.MaxResults))
	}
	if len(j.Templates) == 0 {
		errs = append(errs, errors.New("缺少模板"))
	}
	if len(j.Backgrounds) == 0 {
		errs = append(errs, errors.New("缺少背景图"))
	}
	if j.Policy.singleBackground() && len(j.Backgrounds) > 1 {
		errs = append(errs, fmt.Errorf("策略 %s 只接受一张背景图, 实际 %d 张", j.Policy, len(j.Backgrounds)))
	}
	if j.Policy.singleTemplate() && len(j.Templates) > 1 {
		errs = append(errs, fmt.Errorf("策略 %s 只接受一个模板, 实际 %d 个", j.Policy, len(j.Templates)))
	}
	for i, e := range append(append([]Entry{}, j.Templates...), j.Backgrounds...) {
		if e.Path == "" {
			errs = append(errs, fmt.Errorf("第 %d 项缺少路径", i+1))
		}
	}
	return errors.Join(errs...)
}

// MatcherOptions 清单中显式设置的匹配选项
func (j *Job) MatcherOptions() []match.Option {
	var opts []match.Option
	if j.Threshold != nil {
		opts = append(opts, match.WithThreshold(*j.Threshold))
	}
	if j.Mode != "" {
		if mode, err := cv.ParseColorMode(j.Mode); err == nil {
			opts = append(opts, match.WithColorMode(mode))
		}
	}
	if j.Workers > 0 {
		opts = append(opts, match.WithWorkers(j.Workers))
	}
	if j.MaxResults > 0 {
		opts = append(opts, match.WithMaxResults(j.MaxResults))
	}
	return opts
}

// resolve 返回相对于清单目录的路径
func (j *Job) resolve(path string) string {
	if filepath.IsAbs(path) || j.dir == "" {
		return path
	}
	return filepath.Join(j.dir, path)
}
