package iis

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"sslbind/util"
)

// 默认 AppID（http.sys 绑定归属标识）
const defaultAppID = "{00000000-0000-0000-0000-000000000000}"

// SSLCertBinding http.sys 层的证书绑定记录
type SSLCertBinding struct {
	HostnamePort  string
	CertHash      string
	AppID         string
	CertStoreName string
	IsIPBinding   bool // true: ipport 绑定（无主机名），false: hostnameport 绑定（SNI）
}

// AssignCertHost 按主机名端口绑定证书 (SNI 模式)
// 先删除已有绑定再添加，绑定记录不支持原地改指纹
func AssignCertHost(hostname string, port int, certHash, storeName string) error {
	if port == 0 {
		port = 443
	}
	if storeName == "" {
		storeName = "My"
	}

	if err := util.ValidateHostname(hostname); err != nil {
		return fmt.Errorf("无效的主机名: %w", err)
	}
	if err := util.ValidatePort(port); err != nil {
		return fmt.Errorf("无效的端口: %w", err)
	}
	if err := util.ValidateThumbprint(certHash); err != nil {
		return fmt.Errorf("无效的证书指纹: %w", err)
	}
	certHash = strings.ToLower(util.CleanThumbprint(certHash))

	hostnamePort := fmt.Sprintf("%s:%d", hostname, port)
	_ = RemoveCertHost(hostname, port)

	output, err := util.RunCmdCombined("netsh", "http", "add", "sslcert",
		fmt.Sprintf("hostnameport=%s", hostnamePort),
		fmt.Sprintf("certhash=%s", certHash),
		fmt.Sprintf("appid=%s", defaultAppID),
		fmt.Sprintf("certstorename=%s", storeName))

	if err != nil && !netshOutputSuccess(output) {
		return fmt.Errorf("绑定证书失败: %v, 输出: %s", err, util.TruncateString(output, 200))
	}

	return nil
}

// AssignCertIP 按 IP 端口绑定证书 (非 SNI 模式)
func AssignCertIP(ip string, port int, certHash, storeName string) error {
	if port == 0 {
		port = 443
	}
	if ip == "" || ip == "*" {
		ip = "0.0.0.0"
	}
	if storeName == "" {
		storeName = "My"
	}

	if err := util.ValidatePort(port); err != nil {
		return fmt.Errorf("无效的端口: %w", err)
	}
	if err := util.ValidateThumbprint(certHash); err != nil {
		return fmt.Errorf("无效的证书指纹: %w", err)
	}
	certHash = strings.ToLower(util.CleanThumbprint(certHash))

	ipPort := fmt.Sprintf("%s:%d", ip, port)
	_ = RemoveCertIP(ip, port)

	output, err := util.RunCmdCombined("netsh", "http", "add", "sslcert",
		fmt.Sprintf("ipport=%s", ipPort),
		fmt.Sprintf("certhash=%s", certHash),
		fmt.Sprintf("appid=%s", defaultAppID),
		fmt.Sprintf("certstorename=%s", storeName))

	if err != nil && !netshOutputSuccess(output) {
		return fmt.Errorf("绑定证书失败: %v, 输出: %s", err, util.TruncateString(output, 200))
	}

	return nil
}

// RemoveCertHost 解除主机名端口的证书绑定 (SNI)
func RemoveCertHost(hostname string, port int) error {
	if port == 0 {
		port = 443
	}

	hostnamePort := fmt.Sprintf("%s:%d", hostname, port)
	output, err := util.RunCmdCombined("netsh", "http", "delete", "sslcert",
		fmt.Sprintf("hostnameport=%s", hostnamePort))
	if err != nil {
		return fmt.Errorf("解除绑定失败: %v, 输出: %s", err, util.TruncateString(output, 200))
	}
	return nil
}

// RemoveCertIP 解除 IP 端口的证书绑定
func RemoveCertIP(ip string, port int) error {
	if port == 0 {
		port = 443
	}
	if ip == "" || ip == "*" {
		ip = "0.0.0.0"
	}

	ipPort := fmt.Sprintf("%s:%d", ip, port)
	output, err := util.RunCmdCombined("netsh", "http", "delete", "sslcert",
		fmt.Sprintf("ipport=%s", ipPort))
	if err != nil {
		return fmt.Errorf("解除绑定失败: %v, 输出: %s", err, util.TruncateString(output, 200))
	}
	return nil
}

// netshOutputSuccess netsh 部分版本返回非零码但输出成功信息
func netshOutputSuccess(output string) bool {
	return strings.Contains(strings.ToLower(output), "success") ||
		strings.Contains(output, "成功")
}

// ListSSLCertBindings 列出 http.sys 层全部证书绑定
func ListSSLCertBindings() ([]SSLCertBinding, error) {
	output, err := util.RunCmd("netsh", "http", "show", "sslcert")
	if err != nil {
		return nil, fmt.Errorf("获取 SSL 绑定列表失败: %v", err)
	}
	return parseSSLCertBindings(output), nil
}

// 正则匹配（支持中英文和全角/半角冒号）
var (
	sniBindingRe = regexp.MustCompile(`(?i)(?:Hostname:port|主机名[:：]端口)\s*[:：]\s*(.+)`)
	ipBindingRe  = regexp.MustCompile(`(?i)(?:IP:port|IP[:：]端口)\s*[:：]\s*(.+)`)
	certHashRe   = regexp.MustCompile(`(?i)(?:Certificate Hash|证书哈希)\s*[:：]\s*([a-fA-F0-9]+)`)
	appIDRe      = regexp.MustCompile(`(?i)(?:Application ID|应用程序\s*ID)\s*[:：]\s*(\{[^}]+\})`)
	storeRe      = regexp.MustCompile(`(?i)(?:Certificate Store Name|证书存储名称)\s*[:：]\s*(.+)`)
)

// parseSSLCertBindings 解析 netsh show sslcert 输出
func parseSSLCertBindings(output string) []SSLCertBinding {
	bindings := make([]SSLCertBinding, 0)

	var current *SSLCertBinding
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// 新的绑定条目（优先识别 SNI 绑定）
		if matches := sniBindingRe.FindStringSubmatch(line); matches != nil {
			if current != nil {
				bindings = append(bindings, *current)
			}
			current = &SSLCertBinding{
				HostnamePort: strings.TrimSpace(matches[1]),
				IsIPBinding:  false,
			}
			continue
		}
		if matches := ipBindingRe.FindStringSubmatch(line); matches != nil {
			if current != nil {
				bindings = append(bindings, *current)
			}
			current = &SSLCertBinding{
				HostnamePort: strings.TrimSpace(matches[1]),
				IsIPBinding:  true,
			}
			continue
		}

		if current == nil {
			continue
		}

		if matches := certHashRe.FindStringSubmatch(line); matches != nil {
			current.CertHash = util.CleanThumbprint(matches[1])
		} else if matches := appIDRe.FindStringSubmatch(line); matches != nil {
			current.AppID = strings.TrimSpace(matches[1])
		} else if matches := storeRe.FindStringSubmatch(line); matches != nil {
			current.CertStoreName = strings.TrimSpace(matches[1])
		}
	}

	if current != nil {
		bindings = append(bindings, *current)
	}

	return bindings
}
