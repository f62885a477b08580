package vision

import (
	"context"
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/zoeyai/zoeymatch/internal/testimg"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version 不应为空")
	}
	t.Logf("Version: %s", Version)
}

func TestOptions(t *testing.T) {
	defer ResetOptions()

	opts := GetOptions()
	if opts.Threshold != cv.DefaultThreshold || opts.ColorMode != ColorModeGray {
		t.Errorf("默认配置不正确: %+v", opts)
	}

	SetOptions(Options{Threshold: 0.5, ColorMode: ColorModeColor, Workers: 2})
	cfg := applyOptions()
	if cfg.threshold != 0.5 || cfg.mode != ColorModeColor || cfg.workers != 2 {
		t.Errorf("全局配置未生效: %+v", cfg)
	}

	cfg = applyOptions(WithThreshold(0.8), WithMaxResults(3))
	if cfg.threshold != 0.8 || cfg.maxResults != 3 {
		t.Errorf("选项未覆盖全局配置: %+v", cfg)
	}

	ResetOptions()
	if GetOptions().Threshold != cv.DefaultThreshold {
		t.Error("ResetOptions 后应恢复默认阈值")
	}
}

func TestFindBestMatchFromImages(t *testing.T) {
	src := testimg.NoiseGray(100, 80, 1)
	tpl := testimg.CropGray(src, image.Rect(40, 30, 60, 50))

	result, err := FindBestMatch(tpl, src)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if result == nil {
		t.Fatal("应找到匹配")
	}
	if result.Rect != cv.NewRect(40, 30, 20, 20) || math.Abs(result.Score-1) > 1e-4 {
		t.Errorf("匹配结果不正确: %s", result)
	}

	loc, err := FindLocation(tpl, src)
	if err != nil || loc == nil {
		t.Fatalf("FindLocation 失败: %v", err)
	}
	if *loc != (Point{X: 50, Y: 40}) {
		t.Errorf("中心点应为 (50,40), 实际 %+v", *loc)
	}
}

func TestFindAllMatchesFromFiles(t *testing.T) {
	dir := t.TempDir()
	src := testimg.NoiseGray(160, 80, 2)
	patch := testimg.NoiseGray(20, 20, 3)
	testimg.PasteGray(src, patch, image.Pt(10, 10))
	testimg.PasteGray(src, patch, image.Pt(120, 50))

	bgPath := filepath.Join(dir, "bg.png")
	tplPath := filepath.Join(dir, "tpl.png")
	writeGray(t, bgPath, src)
	writeGray(t, tplPath, patch)

	results, err := FindAllMatches(tplPath, bgPath)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("应找到 2 个匹配, 实际 %d", len(results))
	}

	if _, err := FindBestMatch(filepath.Join(dir, "missing.png"), bgPath); err == nil {
		t.Error("模板文件不存在时应返回错误")
	}
}

func TestNewMatcher(t *testing.T) {
	defer ResetOptions()
	SetOptions(Options{Threshold: 0.7, ColorMode: ColorModeColor})

	m := NewMatcher(WithWorkers(2))
	if m.Threshold() != 0.7 || m.Mode() != ColorModeColor || m.Workers() != 2 {
		t.Errorf("匹配器配置不正确: threshold=%v mode=%s workers=%d", m.Threshold(), m.Mode(), m.Workers())
	}

	src := testimg.NoiseGray(100, 80, 4)
	bg, err := cv.FromImage("bg", src)
	if err != nil {
		t.Fatalf("创建图像失败: %v", err)
	}
	defer bg.Close()
	tpl, err := cv.FromImage("tpl", testimg.CropGray(src, image.Rect(5, 5, 25, 25)))
	if err != nil {
		t.Fatalf("创建图像失败: %v", err)
	}
	defer tpl.Close()

	best, err := m.BestOverall(context.Background(), []*Image{tpl}, bg)
	if err != nil || best == nil {
		t.Fatalf("应找到匹配: %v %v", best, err)
	}
}

func writeGray(t *testing.T, path string, img *image.Gray) {
	t.Helper()
	m, err := cv.FromImage(filepath.Base(path), img)
	if err != nil {
		t.Fatalf("创建图像失败: %v", err)
	}
	defer m.Close()
	if err := cv.WriteImage(path, m); err != nil {
		t.Fatalf("保存图像失败: %v", err)
	}
}
