package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// MatchConfig 匹配配置
type MatchConfig struct {
	Threshold  float64 `json:"threshold"`
	ColorMode  string  `json:"color_mode"`
	Workers    int     `json:"workers"`
	MaxResults int     `json:"max_results"`
	LogLevel   string  `json:"log_level"`
}

// DefaultMatchConfig 默认匹配配置
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Threshold:  cv.DefaultThreshold,
		ColorMode:  cv.DefaultColorMode.String(),
		Workers:    0,
		MaxResults: 0,
		LogLevel:   logger.INFO.String(),
	}
}

// Validate 检查配置取值
func (c *MatchConfig) Validate() error {
	var errs []error
	if math.IsNaN(c.Threshold) || c.Threshold < -1 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("阈值超出范围 [-1, 1]: %v", c.Threshold))
	}
	if _, err := cv.ParseColorMode(c.ColorMode); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("协程数不能为负: %d", c.Workers))
	}
	if c.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("最大结果数不能为负: %d", c.MaxResults))
	}
	return errors.Join(errs...)
}

// Mode 返回解析后的颜色模式
func (c *MatchConfig) Mode() (cv.ColorMode, error) {
	return cv.ParseColorMode(c.ColorMode)
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器，配置保存在 ~/.zoey-match/config.json
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewManagerWithDir(filepath.Join(homeDir, ".zoey-match"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
// 文件中缺省的字段保持默认值
func (m *Manager) Load() (*MatchConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultMatchConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultMatchConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultMatchConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := config.Validate(); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("配置无效: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *MatchConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*MatchConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *MatchConfig) error {
	return defaultManager.Save(config)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
