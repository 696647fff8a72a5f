package iis

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sslbind/util"
)

// getAppcmdPath 获取 appcmd.exe 路径
func getAppcmdPath() string {
	windir := os.Getenv("windir")
	if windir == "" {
		windir = "C:\\Windows"
	}
	return filepath.Join(windir, "System32", "inetsrv", "appcmd.exe")
}

// CheckInstalled 检查 IIS 是否安装
func CheckInstalled() error {
	path := getAppcmdPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("IIS 未安装或 appcmd.exe 不存在: %s", path)
	}
	return nil
}

// appcmd XML 输出结构 (appcmd list site /xml /config)
type appcmdSiteList struct {
	XMLName xml.Name     `xml:"appcmd"`
	Sites   []appcmdSite `xml:"SITE"`
}

type appcmdSite struct {
	Name     string            `xml:"SITE.NAME,attr"`
	ID       string            `xml:"SITE.ID,attr"`
	Bindings string            `xml:"bindings,attr"`
	State    string            `xml:"state,attr"`
	Config   *appcmdSiteConfig `xml:"site"`
}

type appcmdSiteConfig struct {
	Bindings     []appcmdBinding     `xml:"bindings>binding"`
	Applications []appcmdApplication `xml:"application"`
}

type appcmdBinding struct {
	Protocol           string `xml:"protocol,attr"`
	BindingInformation string `xml:"bindingInformation,attr"`
	SSLFlags           string `xml:"sslFlags,attr"`
}

type appcmdApplication struct {
	Path     string       `xml:"path,attr"`
	VirtDirs []appcmdVDir `xml:"virtualDirectory"`
}

type appcmdVDir struct {
	Path         string `xml:"path,attr"`
	PhysicalPath string `xml:"physicalPath,attr"`
}

// ScanSites 扫描所有 IIS 站点（含绑定详情与根应用物理路径）
func ScanSites() ([]SiteInfo, error) {
	if err := CheckInstalled(); err != nil {
		return nil, err
	}

	output, err := util.RunCmd(getAppcmdPath(), "list", "site", "/xml", "/config")
	if err != nil {
		return nil, fmt.Errorf("执行 appcmd 失败: %v", err)
	}

	return parseSiteList(output)
}

// parseSiteList 解析 appcmd 站点列表 XML
func parseSiteList(output string) ([]SiteInfo, error) {
	var result appcmdSiteList
	if err := xml.Unmarshal([]byte(output), &result); err != nil {
		return nil, fmt.Errorf("解析 XML 失败: %v", err)
	}

	sites := make([]SiteInfo, 0, len(result.Sites))
	for _, s := range result.Sites {
		id, _ := strconv.ParseInt(s.ID, 10, 64)
		site := SiteInfo{
			ID:    id,
			Name:  s.Name,
			State: s.State,
		}

		if s.Config != nil && len(s.Config.Bindings) > 0 {
			site.Bindings = parseConfigBindings(s.Config.Bindings)
			site.PhysicalPath = rootPhysicalPath(s.Config.Applications)
		} else {
			// 旧版 appcmd 没有嵌套配置，退回 bindings 属性串
			site.Bindings = parseBindings(s.Bindings)
		}

		sites = append(sites, site)
	}

	return sites, nil
}

// parseConfigBindings 解析嵌套 <binding> 元素（带 sslFlags）
func parseConfigBindings(raw []appcmdBinding) []BindingInfo {
	bindings := make([]BindingInfo, 0, len(raw))
	for _, rb := range raw {
		b, ok := ParseBindingInformation(rb.Protocol, rb.BindingInformation)
		if !ok {
			continue
		}
		if rb.SSLFlags != "" {
			if flags, err := strconv.Atoi(rb.SSLFlags); err == nil {
				b.SSLFlags = flags
			}
		}
		bindings = append(bindings, b)
	}
	return bindings
}

// rootPhysicalPath 取根应用 ("/") 的根虚拟目录物理路径
func rootPhysicalPath(apps []appcmdApplication) string {
	for _, app := range apps {
		if app.Path != "/" {
			continue
		}
		for _, vd := range app.VirtDirs {
			if vd.Path == "/" {
				return expandPhysicalPath(vd.PhysicalPath)
			}
		}
	}
	return ""
}

// parseBindings 解析绑定属性串
// 格式: "http/*:80:,https/*:443:example.com"
func parseBindings(bindingsStr string) []BindingInfo {
	bindings := make([]BindingInfo, 0)
	if bindingsStr == "" {
		return bindings
	}

	for _, part := range strings.Split(bindingsStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		slashIdx := strings.Index(part, "/")
		if slashIdx < 0 {
			continue
		}

		b, ok := ParseBindingInformation(part[:slashIdx], part[slashIdx+1:])
		if !ok {
			continue
		}
		bindings = append(bindings, b)
	}

	return bindings
}

// expandPhysicalPath 展开路径中的环境变量（%SystemDrive% 等）
func expandPhysicalPath(path string) string {
	expanded := os.ExpandEnv(path)
	if !strings.Contains(expanded, "%") {
		return expanded
	}

	var builder strings.Builder
	builder.Grow(len(expanded))

	for i := 0; i < len(expanded); i++ {
		if expanded[i] != '%' {
			builder.WriteByte(expanded[i])
			continue
		}

		end := strings.IndexByte(expanded[i+1:], '%')
		if end < 0 {
			builder.WriteByte(expanded[i])
			continue
		}
		end = i + 1 + end

		if end == i+1 {
			builder.WriteByte('%')
			i = end
			continue
		}

		key := expanded[i+1 : end]
		if value, ok := os.LookupEnv(key); ok {
			builder.WriteString(value)
		} else {
			builder.WriteString(expanded[i : end+1])
		}
		i = end
	}

	return builder.String()
}

// ===== 绑定变更命令 =====

// addBindingArgs 生成添加绑定的 appcmd 参数
// https 绑定带 sslFlags，其余协议不带
func addBindingArgs(siteName string, b BindingInfo) []string {
	attr := fmt.Sprintf("/+bindings.[protocol='%s',bindingInformation='%s']",
		b.Protocol, b.BindingInformation())
	if b.IsHTTPS() {
		attr = fmt.Sprintf("/+bindings.[protocol='%s',bindingInformation='%s',sslFlags='%d']",
			b.Protocol, b.BindingInformation(), b.SSLFlags)
	}
	return []string{"set", "site", fmt.Sprintf("/site.name:%s", siteName), attr}
}

// removeBindingArgs 生成移除绑定的 appcmd 参数
func removeBindingArgs(siteName string, b BindingInfo) []string {
	return []string{"set", "site",
		fmt.Sprintf("/site.name:%s", siteName),
		fmt.Sprintf("/-bindings.[protocol='%s',bindingInformation='%s']",
			b.Protocol, b.BindingInformation()),
	}
}

// setSSLFlagsArgs 生成原地更新 sslFlags 的 appcmd 参数
func setSSLFlagsArgs(siteName string, b BindingInfo, flags int) []string {
	return []string{"set", "site",
		fmt.Sprintf("/site.name:%s", siteName),
		fmt.Sprintf("/bindings.[protocol='%s',bindingInformation='%s'].sslFlags:%d",
			b.Protocol, b.BindingInformation(), flags),
	}
}

// runAppcmd 执行 appcmd 命令并拼接输出到错误
func runAppcmd(args ...string) error {
	output, err := util.RunCmdCombined(getAppcmdPath(), args...)
	if err != nil {
		return fmt.Errorf("appcmd %s 失败: %v, 输出: %s",
			strings.Join(args[:2], " "), err, util.TruncateString(output, 200))
	}
	return nil
}

// ===== 配置节锁 =====

// SectionLocked 查询配置节的覆盖锁状态（Deny = 锁定）
func SectionLocked(section string) (bool, error) {
	script := fmt.Sprintf(`
Import-Module WebAdministration -ErrorAction SilentlyContinue
$s = Get-WebConfiguration -PSPath 'MACHINE/WEBROOT/APPHOST' -Filter '%s' -ErrorAction SilentlyContinue
if ($s) { $s.OverrideModeEffective }
`, util.EscapePowerShellString(section))

	output, err := util.RunPowerShell(script)
	if err != nil {
		return false, fmt.Errorf("查询配置节锁状态失败: %v", err)
	}

	return strings.EqualFold(strings.TrimSpace(output), "Deny"), nil
}

// UnlockSection 解除配置节的覆盖锁
func UnlockSection(section string) error {
	return runAppcmd("unlock", "config", fmt.Sprintf("/section:%s", section))
}
