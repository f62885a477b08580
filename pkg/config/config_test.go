package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

func TestDefaultMatchConfig(t *testing.T) {
	config := DefaultMatchConfig()

	if config.Threshold != cv.DefaultThreshold {
		t.Errorf("默认阈值应为 %v, 实际为 %v", cv.DefaultThreshold, config.Threshold)
	}
	if config.ColorMode != "gray" {
		t.Errorf("默认颜色模式应为 gray, 实际为 %s", config.ColorMode)
	}
	if config.Workers != 0 {
		t.Error("默认 Workers 应为 0")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("默认配置应有效: %v", err)
	}

	t.Logf("默认配置: %+v", config)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *MatchConfig)
		wantErr bool
	}{
		{"默认", func(c *MatchConfig) {}, false},
		{"彩色模式", func(c *MatchConfig) { c.ColorMode = "color" }, false},
		{"阈值过大", func(c *MatchConfig) { c.Threshold = 1.5 }, true},
		{"阈值过小", func(c *MatchConfig) { c.Threshold = -2 }, true},
		{"阈值为 NaN", func(c *MatchConfig) { c.Threshold = math.NaN() }, true},
		{"未知颜色模式", func(c *MatchConfig) { c.ColorMode = "hsv" }, true},
		{"负协程数", func(c *MatchConfig) { c.Workers = -1 }, true},
		{"负结果数", func(c *MatchConfig) { c.MaxResults = -3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultMatchConfig()
			tt.modify(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() 错误 = %v, 期望错误 %v", err, tt.wantErr)
			}
		})
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if manager.Exists() {
		t.Error("初始时配置文件不应存在")
	}

	config := &MatchConfig{
		Threshold:  0.75,
		ColorMode:  "color",
		Workers:    4,
		MaxResults: 20,
		LogLevel:   "DEBUG",
	}

	if err := manager.Save(config); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Error("保存后配置文件应存在")
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if *loaded != *config {
		t.Errorf("配置不匹配: 期望 %+v, 实际 %+v", config, loaded)
	}

	mode, err := loaded.Mode()
	if err != nil || mode != cv.ColorModeColor {
		t.Errorf("颜色模式应为 color, 实际 %v (%v)", mode, err)
	}

	t.Logf("加载的配置: %+v", loaded)
}

func TestManagerSaveInvalid(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	config := DefaultMatchConfig()
	config.Threshold = 2
	if err := manager.Save(config); err == nil {
		t.Error("保存无效配置应返回错误")
	}
	if manager.Exists() {
		t.Error("无效配置不应写入文件")
	}
}

func TestManagerLoadPartial(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	err := os.WriteFile(filepath.Join(tempDir, "config.json"), []byte(`{"threshold": 0.8}`), 0644)
	if err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}

	config, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if config.Threshold != 0.8 {
		t.Errorf("阈值应为 0.8, 实际 %v", config.Threshold)
	}
	if config.ColorMode != DefaultMatchConfig().ColorMode {
		t.Errorf("缺省字段应保持默认值, 实际 %s", config.ColorMode)
	}
}

func TestManagerClear(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	if err := manager.Save(DefaultMatchConfig()); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Fatal("保存后配置文件应存在")
	}

	if err := manager.Clear(); err != nil {
		t.Fatalf("清除配置失败: %v", err)
	}
	if manager.Exists() {
		t.Error("清除后配置文件不应存在")
	}

	// 清除不存在的文件不应报错
	if err := manager.Clear(); err != nil {
		t.Errorf("清除不存在的配置不应报错: %v", err)
	}
}

func TestManagerLoadNonExistent(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	config, err := manager.Load()
	if err != nil {
		t.Fatalf("加载不存在的配置不应报错: %v", err)
	}
	if *config != *DefaultMatchConfig() {
		t.Errorf("应返回默认配置, 实际 %+v", config)
	}
}

func TestManagerLoadCorruptedFile(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	configFile := filepath.Join(tempDir, "config.json")
	if err := os.WriteFile(configFile, []byte("not valid json"), 0644); err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}

	config, err := manager.Load()
	if err == nil {
		t.Error("加载损坏的配置应返回错误")
	}
	if config == nil {
		t.Error("即使出错也应返回默认配置")
	}

	t.Logf("加载损坏配置的错误: %v", err)
}

func TestManagerPaths(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if manager.GetConfigDir() != tempDir {
		t.Errorf("GetConfigDir 应为 %s", tempDir)
	}

	expectedFile := filepath.Join(tempDir, "config.json")
	if manager.GetConfigFile() != expectedFile {
		t.Errorf("GetConfigFile 应为 %s", expectedFile)
	}
}

func TestDefaultManager(t *testing.T) {
	manager := GetDefaultManager()
	if manager == nil {
		t.Fatal("GetDefaultManager 返回 nil")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("无法获取用户目录")
	}
	expectedDir := filepath.Join(homeDir, ".zoey-match")
	if manager.GetConfigDir() != expectedDir {
		t.Errorf("默认配置目录应为 %s, 实际为 %s", expectedDir, manager.GetConfigDir())
	}
}

// BenchmarkSaveLoad 基准测试
func BenchmarkSaveLoad(b *testing.B) {
	manager := NewManagerWithDir(b.TempDir())
	config := DefaultMatchConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		manager.Save(config)
		manager.Load()
	}
}
