package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TLSPort != 443 {
		t.Errorf("TLSPort = %d, 期望 443", cfg.TLSPort)
	}
	if cfg.MaxNames != 100 {
		t.Errorf("MaxNames = %d, 期望 100", cfg.MaxNames)
	}
	if cfg.ScanMode != ScanModeSite {
		t.Errorf("ScanMode = %q, 期望 %q", cfg.ScanMode, ScanModeSite)
	}
	if !cfg.SuppressHTTP {
		t.Error("SuppressHTTP 默认应开启")
	}
	if cfg.ConflictAction != ConflictActionSkip {
		t.Errorf("ConflictAction = %q, 期望 %q", cfg.ConflictAction, ConflictActionSkip)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "no-such.json"))
	if err != nil {
		t.Fatalf("缺失配置文件应返回默认配置: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("缺失文件时配置 = %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.TLSPort = 8443
	cfg.ScanMode = ScanModeBinding
	cfg.CentralStorePath = `D:\certs`
	cfg.Targets = []SavedTarget{
		{SiteID: 1, Host: "shop.example.com", AlternativeNames: []string{"www.example.com"}, Plugin: "IISBinding"},
	}
	cfg.LastScan = "2026-08-29 10:00:00"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo 错误: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom 错误: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("往返后配置不一致:\n保存 %+v\n加载 %+v", cfg, loaded)
	}
}

func TestSaveToOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("第一次保存错误: %v", err)
	}
	cfg.TLSPort = 444
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("第二次保存错误: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom 错误: %v", err)
	}
	if loaded.TLSPort != 444 {
		t.Errorf("TLSPort = %d, 期望 444", loaded.TLSPort)
	}

	// 临时文件不残留
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("保存后不应残留临时文件")
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"scan_mode": "binding"}`), 0600); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom 错误: %v", err)
	}
	if cfg.ScanMode != ScanModeBinding {
		t.Errorf("ScanMode = %q", cfg.ScanMode)
	}
	if cfg.TLSPort != 443 || cfg.MaxNames != 100 {
		t.Errorf("零值字段未补默认值: port=%d maxNames=%d", cfg.TLSPort, cfg.MaxNames)
	}
	if cfg.ConflictAction != ConflictActionSkip {
		t.Errorf("ConflictAction = %q", cfg.ConflictAction)
	}
}

func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("损坏的配置文件应返回错误")
	}
}

func TestValidateScanMode(t *testing.T) {
	if err := ValidateScanMode(ScanModeSite); err != nil {
		t.Errorf("ValidateScanMode(site) 错误: %v", err)
	}
	if err := ValidateScanMode(ScanModeBinding); err != nil {
		t.Errorf("ValidateScanMode(binding) 错误: %v", err)
	}
	if err := ValidateScanMode("both"); err == nil {
		t.Error("非法扫描模式应返回错误")
	}
}

func TestValidateConflictAction(t *testing.T) {
	if err := ValidateConflictAction(ConflictActionUseIP); err != nil {
		t.Errorf("ValidateConflictAction(use-ip) 错误: %v", err)
	}
	if err := ValidateConflictAction(ConflictActionSkip); err != nil {
		t.Errorf("ValidateConflictAction(skip) 错误: %v", err)
	}
	if err := ValidateConflictAction("ask"); err == nil {
		t.Error("非法冲突处理方式应返回错误")
	}
}
