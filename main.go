package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sslbind/binding"
	"sslbind/cert"
	"sslbind/config"
	"sslbind/iis"
	"sslbind/util"
)

var (
	version = "1.0.0"
)

func main() {
	// 命令行参数
	scanMode := flag.Bool("scan", false, "扫描站点并输出证书目标（记录到配置用于漂移对比）")
	pfxPath := flag.String("pfx", "", "要部署的 PFX 证书文件")
	pemPath := flag.String("pem", "", "要部署的 PEM 证书文件（可含证书链）")
	keyPath := flag.String("key", "", "PEM 私钥文件（与 -pem 搭配）")
	password := flag.String("password", "", "PFX/私钥密码")
	central := flag.Bool("central", false, "使用中央证书存储模式部署")
	mode := flag.String("mode", "", "扫描模式: site 或 binding（默认读配置）")
	port := flag.Int("port", 0, "https 绑定端口（默认读配置）")
	scheduleHours := flag.Int("schedule", 0, "创建计划任务，每 N 小时自动重新扫描")
	unschedule := flag.Bool("unschedule", false, "删除自动重扫计划任务")
	debugMode := flag.Bool("debug", false, "启用调试模式（输出到 debug.log）")
	showVersion := flag.Bool("version", false, "显示版本号")
	showHelp := flag.Bool("help", false, "显示帮助")

	flag.Parse()

	if *showVersion {
		fmt.Printf("sslbind v%s\n", version)
		return
	}
	if *showHelp {
		printUsage()
		return
	}

	if *debugMode {
		logPath := filepath.Join(config.GetDataDir(), "debug.log")
		if err := util.EnableDebugFile(logPath); err != nil {
			util.Warn("启用调试日志失败: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		util.Error("加载配置失败: %v", err)
		os.Exit(1)
	}
	if *mode != "" {
		if err := config.ValidateScanMode(*mode); err != nil {
			util.Error("%v", err)
			os.Exit(1)
		}
		cfg.ScanMode = *mode
	}
	if *port != 0 {
		cfg.TLSPort = *port
	}

	switch {
	case *unschedule:
		if err := util.DeleteTask(util.DefaultTaskName); err != nil {
			util.Error("删除计划任务失败: %v", err)
			os.Exit(1)
		}
		util.Info("已删除计划任务 %s", util.DefaultTaskName)
	case *scheduleHours > 0:
		if err := util.CreateTask(util.DefaultTaskName, *scheduleHours, "-scan"); err != nil {
			util.Error("创建计划任务失败: %v", err)
			os.Exit(1)
		}
		util.Info("已创建计划任务 %s（每 %d 小时重新扫描）", util.DefaultTaskName, *scheduleHours)
	case *scanMode:
		if err := runScan(cfg); err != nil {
			util.Error("扫描失败: %v", err)
			os.Exit(1)
		}
	case *pfxPath != "" || *pemPath != "":
		if err := runDeploy(cfg, *pfxPath, *pemPath, *keyPath, *password, *central); err != nil {
			util.Error("部署失败: %v", err)
			os.Exit(1)
		}
	default:
		printUsage()
	}
}

// detectVersion 检测 IIS 版本，IIS7Mode 配置强制降级
func detectVersion(cfg *config.Config) iis.Version {
	v := iis.DetectVersion()
	if cfg.IIS7Mode && v.Major >= 8 {
		util.Info("配置了 IIS7 兼容模式，按 IIS 7 处理（禁用 SNI）")
		return iis.Version{Major: 7}
	}
	return v
}

// newDiscoverer 装配发现器
func newDiscoverer(cfg *config.Config, v iis.Version) *binding.Discoverer {
	return &binding.Discoverer{
		Store:    binding.DefaultStore{},
		Version:  v,
		MaxNames: cfg.MaxNames,
	}
}

// conflictPolicy 根据配置构造 IP 冲突决策
func conflictPolicy(cfg *config.Config) binding.ConflictPolicy {
	if cfg.ConflictAction == config.ConflictActionUseIP {
		return func(host, ip string) binding.ConflictDecision {
			util.Warn("主机 %s 沿用专用 IP %s（该 IP 上其他 SNI 绑定可能失效）", host, ip)
			return binding.ConflictUseIP
		}
	}
	return func(host, ip string) binding.ConflictDecision {
		return binding.ConflictSkipHost
	}
}

// discoverTargets 按配置的扫描模式发现目标
func discoverTargets(cfg *config.Config, v iis.Version) ([]binding.CertTarget, error) {
	d := newDiscoverer(cfg, v)
	if cfg.ScanMode == config.ScanModeBinding {
		return d.PerBindingTargets(cfg.SuppressHTTP)
	}
	return d.PerSiteTargets(cfg.SuppressHTTP)
}

// runScan 扫描站点、输出目标、对比上次扫描并更新记录
func runScan(cfg *config.Config) error {
	v := detectVersion(cfg)
	util.Info("IIS 版本: %s", v)

	targets, err := discoverTargets(cfg, v)
	if err != nil {
		return err
	}

	for i := range targets {
		t := &targets[i]
		fmt.Printf("[%d] 站点 %d  %s", i+1, t.SiteID, t.Host)
		if len(t.AlternativeNames) > 1 {
			fmt.Printf("  (+%d 个域名)", len(t.AlternativeNames)-1)
		}
		fmt.Println()

		if saved := findSavedTarget(cfg, t); saved != nil {
			reportDrift(saved, t)
		}
	}

	// 记录本次扫描结果
	cfg.Targets = cfg.Targets[:0]
	for i := range targets {
		t := &targets[i]
		cfg.Targets = append(cfg.Targets, config.SavedTarget{
			SiteID:           t.SiteID,
			Host:             t.Host,
			AlternativeNames: t.AlternativeNames,
			WebRootPath:      t.WebRootPath,
			Plugin:           t.Plugin,
		})
	}
	cfg.LastScan = time.Now().Format("2006-01-02 15:04:05")
	if err := cfg.Save(); err != nil {
		util.Warn("保存扫描记录失败: %v", err)
	}

	util.Info("共发现 %d 个证书目标", len(targets))
	return nil
}

// findSavedTarget 在上次扫描记录中定位同一目标
func findSavedTarget(cfg *config.Config, t *binding.CertTarget) *binding.CertTarget {
	for i := range cfg.Targets {
		s := &cfg.Targets[i]
		if s.Plugin != t.Plugin {
			continue
		}
		matched := false
		if t.Plugin == binding.PluginSite {
			matched = s.SiteID == t.SiteID
		} else {
			matched = strings.EqualFold(s.Host, t.Host)
		}
		if matched {
			return &binding.CertTarget{
				SiteID:           s.SiteID,
				Host:             s.Host,
				AlternativeNames: s.AlternativeNames,
				WebRootPath:      s.WebRootPath,
				Plugin:           s.Plugin,
			}
		}
	}
	return nil
}

// reportDrift 输出与上次扫描的差异
func reportDrift(saved, fresh *binding.CertTarget) {
	changes := binding.DiffTarget(saved, fresh)
	if !changes.HasChanges() {
		return
	}
	if changes.WebRootChanged {
		util.Info("    物理路径变更: %s -> %s", changes.PreviousWebRoot, changes.CurrentWebRoot)
	}
	if len(changes.AddedHosts) > 0 {
		util.Info("    新增域名: %s", strings.Join(changes.AddedHosts, ", "))
	}
	if len(changes.RemovedHosts) > 0 {
		util.Info("    移除域名: %s", strings.Join(changes.RemovedHosts, ", "))
	}
}

// runDeploy 安装证书并调和全部目标的绑定
func runDeploy(cfg *config.Config, pfxPath, pemPath, keyPath, password string, central bool) error {
	v := detectVersion(cfg)
	if !v.Detected() {
		return fmt.Errorf("未检测到 IIS")
	}
	util.Info("IIS 版本: %s", v)

	targets, err := discoverTargets(cfg, v)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("没有可部署的证书目标")
	}

	installer := &binding.Installer{
		Store:   binding.DefaultStore{},
		Version: v,
		TLSPort: cfg.TLSPort,
		Policy:  conflictPolicy(cfg),
	}

	if central {
		return deployCentral(cfg, installer, targets, pfxPath, pemPath, keyPath, password)
	}
	return deployDirect(installer, targets, pfxPath, pemPath, keyPath, password)
}

// deployDirect 直接绑定模式：导入证书存储后逐目标绑定
func deployDirect(installer *binding.Installer, targets []binding.CertTarget, pfxPath, pemPath, keyPath, password string) error {
	var issued *cert.IssuedCert
	var err error
	if pfxPath != "" {
		issued, err = cert.InstallPFX(pfxPath, password)
	} else {
		if keyPath == "" {
			return fmt.Errorf("-pem 需要同时指定 -key")
		}
		issued, err = cert.InstallPEM(pemPath, keyPath, password)
	}
	if err != nil {
		return fmt.Errorf("安装证书失败: %w", err)
	}
	util.Info("证书已导入存储 %s，指纹 %s", issued.StoreName, issued.Thumbprint)

	failed := 0
	for i := range targets {
		t := &targets[i]
		if err := installer.Install(t, issued); err != nil {
			util.Error("目标 %s (站点 %d) 部署失败: %v", t.Host, t.SiteID, err)
			failed++
			continue
		}
		util.Info("目标 %s (站点 %d) 部署完成", t.Host, t.SiteID)
	}

	if failed > 0 {
		return fmt.Errorf("%d 个目标部署失败", failed)
	}
	return nil
}

// deployCentral 中央证书存储模式：按主机名导出 PFX 后转换绑定
func deployCentral(cfg *config.Config, installer *binding.Installer, targets []binding.CertTarget, pfxPath, pemPath, keyPath, password string) error {
	if cfg.CentralStorePath == "" {
		return fmt.Errorf("未配置中央证书存储目录 (central_store_path)")
	}

	// 证书按主机名命名写入中央存储目录，绑定只带标志不带指纹
	exportHost := func(host string) error {
		if pfxPath != "" {
			data, err := os.ReadFile(pfxPath)
			if err != nil {
				return fmt.Errorf("读取 PFX 失败: %w", err)
			}
			_, err = cert.ExportCentralPFX(cfg.CentralStorePath, host, data)
			return err
		}
		if keyPath == "" {
			return fmt.Errorf("-pem 需要同时指定 -key")
		}
		certBytes, err := os.ReadFile(pemPath)
		if err != nil {
			return fmt.Errorf("读取证书文件失败: %w", err)
		}
		keyBytes, err := os.ReadFile(keyPath)
		if err != nil {
			return fmt.Errorf("读取私钥文件失败: %w", err)
		}
		leafPEM, chainPEM := cert.SplitPEMCertChain(string(certBytes))
		_, err = cert.ExportCentralPEM(cfg.CentralStorePath, host, leafPEM, string(keyBytes), chainPEM, password)
		return err
	}

	failed := 0
	for i := range targets {
		t := &targets[i]

		exportErr := false
		for _, host := range t.AllHosts() {
			if err := exportHost(host); err != nil {
				util.Error("导出主机 %s 的中央证书失败: %v", host, err)
				exportErr = true
				break
			}
		}
		if exportErr {
			failed++
			continue
		}

		if err := installer.InstallCentralized(t); err != nil {
			util.Error("目标 %s (站点 %d) 转换失败: %v", t.Host, t.SiteID, err)
			failed++
			continue
		}
		util.Info("目标 %s (站点 %d) 已转为中央证书存储", t.Host, t.SiteID)
	}

	if failed > 0 {
		return fmt.Errorf("%d 个目标部署失败", failed)
	}
	return nil
}

// printUsage 打印使用说明
func printUsage() {
	fmt.Printf(`IIS 证书绑定工具 v%s

用法:
  sslbind.exe [选项]

选项:
  -scan            扫描站点并输出证书目标（记录到配置用于漂移对比）
  -pfx <文件>      部署 PFX 证书到所有发现的目标
  -pem <文件>      部署 PEM 证书（需搭配 -key）
  -key <文件>      PEM 私钥文件
  -password <串>   PFX/私钥密码
  -central         中央证书存储模式（需要 IIS 8+ 并配置 central_store_path）
  -mode <模式>     扫描模式: site（每站点一个多域名目标）或 binding（每主机名一个目标）
  -port <端口>     https 绑定端口（默认 443）
  -schedule <N>    创建计划任务，每 N 小时自动重新扫描
  -unschedule      删除自动重扫计划任务
  -debug           启用调试模式（输出到 debug.log）
  -version         显示版本号
  -help            显示帮助

示例:
  sslbind.exe -scan
  sslbind.exe -scan -mode binding
  sslbind.exe -pfx cert.pfx -password secret
  sslbind.exe -pem fullchain.pem -key privkey.pem
  sslbind.exe -pfx cert.pfx -central

配置目录:
  程序同目录下的 sslbind 文件夹
  - 配置文件: sslbind/config.json

`, version)
}
