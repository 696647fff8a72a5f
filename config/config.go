package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// configMu 保护配置文件读写的全局互斥锁
var configMu sync.Mutex

// DataDirName 数据目录名称
const DataDirName = "sslbind"

// 扫描模式
const (
	ScanModeSite    = "site"    // 站点维度：每站点一个多域名目标
	ScanModeBinding = "binding" // 绑定维度：每个唯一主机名一个目标
)

// IP 冲突处理方式
const (
	ConflictActionUseIP = "use-ip" // 沿用 http 绑定的专用 IP
	ConflictActionSkip  = "skip"   // 跳过冲突主机
)

// SavedTarget 一次扫描记录的证书目标，用于下次扫描的漂移对比
type SavedTarget struct {
	SiteID           int64    `json:"site_id"`
	Host             string   `json:"host"`
	AlternativeNames []string `json:"alternative_names,omitempty"`
	WebRootPath      string   `json:"web_root_path,omitempty"`
	Plugin           string   `json:"plugin,omitempty"`
}

// Config 应用配置
type Config struct {
	TLSPort          int           `json:"tls_port"`           // https 绑定端口，默认 443
	MaxNames         int           `json:"max_names"`          // 单证书域名数量上限，默认 100
	ScanMode         string        `json:"scan_mode"`          // site 或 binding
	SuppressHTTP     bool          `json:"suppress_http"`      // 丢弃已被 https 覆盖的 http 绑定
	ConflictAction   string        `json:"conflict_action"`    // IP 冲突处理: use-ip 或 skip
	CentralStorePath string        `json:"central_store_path,omitempty"` // 中央证书存储目录
	IIS7Mode         bool          `json:"iis7_mode"`          // 强制 IIS7 兼容（禁用 SNI）
	Targets          []SavedTarget `json:"targets"`            // 上次扫描结果
	LastScan         string        `json:"last_scan,omitempty"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		TLSPort:        443,
		MaxNames:       100,
		ScanMode:       ScanModeSite,
		SuppressHTTP:   true,
		ConflictAction: ConflictActionSkip,
		Targets:        []SavedTarget{},
	}
}

// GetDataDir 获取数据目录（程序同目录下的 sslbind 文件夹）
func GetDataDir() string {
	exe, err := os.Executable()
	if err != nil {
		// 回退到当前目录
		return DataDirName
	}
	dataDir := filepath.Join(filepath.Dir(exe), DataDirName)
	os.MkdirAll(dataDir, 0700)
	return dataDir
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return filepath.Join(GetDataDir(), "config.json")
}

// Load 加载配置（线程安全）
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom 从指定路径加载配置
func LoadFrom(path string) (*Config, error) {
	configMu.Lock()
	defer configMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults 为零值字段补默认值
func applyDefaults(cfg *Config) {
	if cfg.TLSPort == 0 {
		cfg.TLSPort = 443
	}
	if cfg.MaxNames == 0 {
		cfg.MaxNames = 100
	}
	if cfg.ScanMode == "" {
		cfg.ScanMode = ScanModeSite
	}
	if cfg.ConflictAction == "" {
		cfg.ConflictAction = ConflictActionSkip
	}
}

// Save 保存配置到默认路径（线程安全，原子写入）
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo 保存配置到指定路径
func (c *Config) SaveTo(path string) error {
	configMu.Lock()
	defer configMu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// 先写临时文件再重命名（Windows 需要先删除目标文件）
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("删除旧配置失败: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("重命名配置文件失败: %w", err)
	}

	return nil
}

// ValidateScanMode 校验扫描模式取值
func ValidateScanMode(mode string) error {
	switch mode {
	case ScanModeSite, ScanModeBinding:
		return nil
	default:
		return fmt.Errorf("无效的扫描模式: %q (应为 %s 或 %s)", mode, ScanModeSite, ScanModeBinding)
	}
}

// ValidateConflictAction 校验 IP 冲突处理方式取值
func ValidateConflictAction(action string) error {
	switch action {
	case ConflictActionUseIP, ConflictActionSkip:
		return nil
	default:
		return fmt.Errorf("无效的冲突处理方式: %q (应为 %s 或 %s)", action, ConflictActionUseIP, ConflictActionSkip)
	}
}
