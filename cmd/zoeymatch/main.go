package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/capture"
	"github.com/zoeyai/zoeymatch/pkg/config"
	"github.com/zoeyai/zoeymatch/pkg/job"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/match"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// listFlag 可重复、逗号分隔的列表参数
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func main() {
	var templates, backgrounds listFlag
	flag.Var(&templates, "template", "模板图像路径 (可重复或逗号分隔)")
	flag.Var(&backgrounds, "background", "背景图像路径 (可重复或逗号分隔)")

	var (
		useScreen   = flag.Bool("screen", false, "截取屏幕作为背景图")
		jobFile     = flag.String("job", "", "YAML 任务清单")
		policyName  = flag.String("policy", string(job.PolicyBest), "汇总策略")
		modeName    = flag.String("mode", "", "颜色模式 (color|gray)")
		threshold   = flag.Float64("threshold", cv.DefaultThreshold, "匹配阈值")
		workers     = flag.Int("workers", 0, "并行协程数 (0 表示逻辑 CPU 数)")
		maxResults  = flag.Int("max", 0, "多目标匹配最大结果数 (0 表示不限)")
		annotate    = flag.String("annotate", "", "在第一张背景图上绘制匹配结果并保存到该路径")
		saveConfig  = flag.Bool("save", false, "保存当前参数为默认配置")
		logLevel    = flag.String("log-level", "", "日志级别 (DEBUG|INFO|WARN|ERROR)")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *showHelp {
		printHelp()
		return
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := checkSources(set); err != nil {
		fatal("%v", err)
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("加载配置失败: %v", err)
	}

	// 命令行参数优先级高于配置文件
	if set["threshold"] {
		cfg.Threshold = *threshold
	}
	if *modeName != "" {
		cfg.ColorMode = *modeName
	}
	if set["workers"] {
		cfg.Workers = *workers
	}
	if set["max"] {
		cfg.MaxResults = *maxResults
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal("参数无效: %v", err)
	}
	logger.Default().SetLevel(logger.ParseLevel(cfg.LogLevel))

	if *saveConfig {
		if err := config.Save(cfg); err != nil {
			logger.Warn("保存配置失败: %v", err)
		} else {
			logger.Info("配置已保存到 %s", config.GetDefaultManager().GetConfigFile())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var results []*cv.MatchResult
	var firstBackground *cv.Image

	if *jobFile != "" {
		results, firstBackground = runJob(ctx, *jobFile, cfg, set, *modeName != "")
	} else {
		policy, err := job.ParsePolicy(*policyName)
		if err != nil {
			fatal("%v", err)
		}
		results, firstBackground = runFlags(ctx, policy, templates, backgrounds, *useScreen, cfg)
	}
	defer firstBackground.Close()

	if *annotate != "" && firstBackground != nil {
		writeAnnotated(*annotate, firstBackground, results)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		fatal("输出结果失败: %v", err)
	}
}

// jobExclusive 使用任务清单时不能同时指定的参数（清单自带模板、背景图和策略）
var jobExclusive = []string{"template", "background", "screen", "policy"}

// checkSources 检查 -job 与图像来源参数是否冲突
func checkSources(set map[string]bool) error {
	if !set["job"] {
		return nil
	}
	var conflicts []string
	for _, name := range jobExclusive {
		if set[name] {
			conflicts = append(conflicts, "-"+name)
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("-job 不能与 %s 同时使用", strings.Join(conflicts, ", "))
	}
	return nil
}

// matcherOptions 配置文件 (含命令行覆盖) 对应的匹配选项
func matcherOptions(cfg *config.MatchConfig) []match.Option {
	mode, _ := cfg.Mode()
	return []match.Option{
		match.WithThreshold(cfg.Threshold),
		match.WithColorMode(mode),
		match.WithWorkers(cfg.Workers),
		match.WithMaxResults(cfg.MaxResults),
		match.WithLogger(logger.Default().Named("match")),
	}
}

// runJob 执行任务清单；命令行显式参数 > 清单 > 配置文件
func runJob(ctx context.Context, path string, cfg *config.MatchConfig, set map[string]bool, modeSet bool) ([]*cv.MatchResult, *cv.Image) {
	j, err := job.Load(path)
	if err != nil {
		fatal("%v", err)
	}

	opts := matcherOptions(cfg)
	opts = append(opts, j.MatcherOptions()...)
	mode, _ := cfg.Mode()
	if set["threshold"] {
		opts = append(opts, match.WithThreshold(cfg.Threshold))
	}
	if modeSet {
		opts = append(opts, match.WithColorMode(mode))
	}
	if set["workers"] {
		opts = append(opts, match.WithWorkers(cfg.Workers))
	}
	if set["max"] {
		opts = append(opts, match.WithMaxResults(cfg.MaxResults))
	}

	report, err := job.Run(ctx, j, match.New(opts...))
	if err != nil {
		fatal("执行任务失败: %v", err)
	}
	logger.Info("策略 %s: %d 个结果, 耗时 %.1fms", report.Policy, len(report.Results), report.ElapsedMs)

	var first *cv.Image
	if len(j.Backgrounds) > 0 {
		bgPath := j.Backgrounds[0].Path
		if !filepath.IsAbs(bgPath) {
			bgPath = filepath.Join(filepath.Dir(path), bgPath)
		}
		if first, err = cv.ReadImage(bgPath); err != nil {
			logger.Warn("读取背景图失败: %v", err)
		}
	}
	return report.Results, first
}

// runFlags 按命令行参数执行匹配，返回结果和第一张背景图
func runFlags(ctx context.Context, policy job.Policy, templatePaths, backgroundPaths []string, useScreen bool, cfg *config.MatchConfig) ([]*cv.MatchResult, *cv.Image) {
	if len(templatePaths) == 0 {
		fmt.Fprintln(os.Stderr, "缺少模板，请使用 -template 参数指定")
		printHelp()
		os.Exit(1)
	}
	if len(backgroundPaths) == 0 && !useScreen {
		fmt.Fprintln(os.Stderr, "缺少背景图，请使用 -background 或 -screen 参数")
		printHelp()
		os.Exit(1)
	}

	templates := make([]*cv.Image, 0, len(templatePaths))
	for _, p := range templatePaths {
		img, err := cv.ReadImage(p)
		if err != nil {
			fatal("%v", err)
		}
		templates = append(templates, img)
	}
	defer func() {
		for _, img := range templates {
			img.Close()
		}
	}()

	var backgrounds []*cv.Image
	if useScreen {
		img, err := capture.CaptureScreen("screen")
		if err != nil {
			fatal("%v", err)
		}
		backgrounds = append(backgrounds, img)
	}
	for _, p := range backgroundPaths {
		img, err := cv.ReadImage(p)
		if err != nil {
			fatal("%v", err)
		}
		backgrounds = append(backgrounds, img)
	}
	defer func() {
		for _, img := range backgrounds[1:] {
			img.Close()
		}
	}()

	results, err := job.Execute(ctx, match.New(matcherOptions(cfg)...), policy, templates, backgrounds)
	if err != nil {
		backgrounds[0].Close()
		fatal("匹配失败: %v", err)
	}
	logger.Info("策略 %s: %d 个结果", policy, len(results))
	return results, backgrounds[0]
}

func writeAnnotated(path string, background *cv.Image, results []*cv.MatchResult) {
	out, err := cv.Annotate(background, results)
	if err != nil {
		logger.Warn("绘制结果失败: %v", err)
		return
	}
	defer out.Close()
	if err := cv.WriteImage(path, out); err != nil {
		logger.Warn("%v", err)
		return
	}
	logger.Info("标注图已保存到 %s", path)
}

func fatal(format string, args ...interface{}) {
	logger.Error(format, args...)
	os.Exit(1)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Zoey Match v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("Zoey Match - 模板匹配工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  zoeymatch [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -template path      模板图像 (可重复或逗号分隔)")
	fmt.Println("  -background path    背景图像 (可重复或逗号分隔)")
	fmt.Println("  -screen             截取屏幕作为第一张背景图")
	fmt.Println("  -job file           YAML 任务清单 (不能与 -template/-background/-screen/-policy 同时使用)")
	fmt.Println("  -policy name        汇总策略 (默认 best)")
	fmt.Println("  -mode string        颜色模式 color|gray")
	fmt.Println("  -threshold float    匹配阈值 (默认 0.9)")
	fmt.Println("  -workers int        并行协程数")
	fmt.Println("  -max int            多目标匹配最大结果数")
	fmt.Println("  -annotate file      保存标注后的第一张背景图")
	fmt.Println("  -save               保存当前参数为默认配置")
	fmt.Println("  -log-level string   日志级别")
	fmt.Println("  -version            显示版本信息")
	fmt.Println("  -help               显示帮助信息")
	fmt.Println()
	fmt.Println("策略:")
	for _, p := range job.Policies {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 多个按钮竞争同一张截图")
	fmt.Println("  zoeymatch -template ok.png,cancel.png -screen -policy competitive")
	fmt.Println()
	fmt.Println("  # 执行任务清单")
	fmt.Println("  zoeymatch -job job.yaml -annotate out.png")
	fmt.Println()
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
}
