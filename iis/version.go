package iis

import (
	"strconv"
	"strings"

	"sslbind/util"
)

// DetectVersion 从注册表读取 IIS 版本
// 检测不到时返回零值 Version（调用方据此判断 IIS 是否存在）
func DetectVersion() Version {
	script := `
$v = Get-ItemProperty 'HKLM:\SOFTWARE\Microsoft\InetStp' -ErrorAction SilentlyContinue
if ($v) { "$($v.MajorVersion).$($v.MinorVersion)" }
`
	output, err := util.RunPowerShell(script)
	if err != nil {
		util.Debug("读取 IIS 版本失败: %v", err)
		return Version{}
	}

	return parseVersionString(output)
}

// parseVersionString 解析 "major.minor" 形式的版本串
func parseVersionString(s string) Version {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}
	}

	parts := strings.SplitN(s, ".", 2)
	major, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || major < 0 {
		return Version{}
	}

	minor := 0
	if len(parts) > 1 {
		if m, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && m >= 0 {
			minor = m
		}
	}

	return Version{Major: major, Minor: minor}
}
