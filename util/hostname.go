package util

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

// ErrInvalidHost 主机名无法规范化（非法标签、超长标签等）
var ErrInvalidHost = errors.New("无效的主机名")

// isASCII 检查字符串是否全部为 ASCII 字符
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// NormalizeHost 将主机名规范化为小写 ASCII (Punycode) 形式
// 规范化后的主机名可直接做序数比较，所有主机名比较前必须先经过这里
// 无法编码时返回 ErrInvalidHost
func NormalizeHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", fmt.Errorf("%w: 主机名为空", ErrInvalidHost)
	}

	prefix, rest := "", host
	if strings.HasPrefix(host, "*.") {
		prefix, rest = "*.", host[2:]
	}

	if isASCII(rest) {
		// 纯 ASCII 也要过一遍 idna 校验（标签长度、非法字符）
		if _, err := idna.Lookup.ToASCII(rest); err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidHost, host)
		}
		return prefix + rest, nil
	}

	ascii, err := idna.Lookup.ToASCII(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidHost, host)
	}
	return prefix + strings.ToLower(ascii), nil
}

// MatchDomain 检查绑定域名是否匹配证书域名（支持通配符）
// bindingHost: IIS 绑定的域名 (如 www.example.com)
// certDomain: 证书的域名 (如 *.example.com 或 www.example.com)
//
// 匹配规则：
//   - 精确匹配: www.example.com 匹配 www.example.com
//   - 通配符匹配: *.example.com 匹配 www.example.com, api.example.com
//   - 通配符只匹配单级子域名: *.example.com 不匹配 a.b.example.com
func MatchDomain(bindingHost, certDomain string) bool {
	bindingHost = strings.ToLower(strings.TrimSpace(bindingHost))
	certDomain = strings.ToLower(strings.TrimSpace(certDomain))

	if bindingHost == "" || certDomain == "" {
		return false
	}

	if bindingHost == certDomain {
		return true
	}

	if strings.HasPrefix(certDomain, "*.") {
		suffix := certDomain[1:] // ".example.com"
		if strings.HasSuffix(bindingHost, suffix) {
			prefix := bindingHost[:len(bindingHost)-len(suffix)]
			if !strings.Contains(prefix, ".") && prefix != "" {
				return true
			}
		}
	}

	return false
}

// ===== PowerShell 转义 =====

// EscapePowerShellString 转义 PowerShell 单引号字符串
func EscapePowerShellString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ===== 验证函数 =====

// thumbprintRegex 证书指纹正则：40位十六进制字符
var thumbprintRegex = regexp.MustCompile(`^[A-Fa-f0-9]{40}$`)

// ValidateThumbprint 验证证书指纹格式
func ValidateThumbprint(thumbprint string) error {
	if !thumbprintRegex.MatchString(CleanThumbprint(thumbprint)) {
		return fmt.Errorf("证书指纹必须是40位十六进制字符")
	}
	return nil
}

// hostnameRegex 主机名正则
var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateHostname 验证主机名格式
func ValidateHostname(hostname string) error {
	normalized, err := NormalizeHost(hostname)
	if err != nil {
		return err
	}
	if len(normalized) > 253 {
		return fmt.Errorf("主机名长度不能超过253个字符")
	}
	if !hostnameRegex.MatchString(strings.TrimPrefix(normalized, "*.")) {
		return fmt.Errorf("主机名格式无效")
	}
	return nil
}

// ValidatePort 验证端口号
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("端口必须在 1-65535 之间")
	}
	return nil
}

// ValidateSiteName 验证 IIS 站点名称（白名单模式）
// 只允许：字母、数字、空格、连字符、下划线、点、中文（CJK）
func ValidateSiteName(siteName string) error {
	if siteName == "" {
		return fmt.Errorf("站点名称不能为空")
	}
	if len(siteName) > 260 {
		return fmt.Errorf("站点名称长度不能超过260个字符")
	}

	for _, r := range siteName {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			continue
		}
		// 中文 CJK 基本区与扩展 A
		if r >= 0x4E00 && r <= 0x9FFF {
			continue
		}
		if r >= 0x3400 && r <= 0x4DBF {
			continue
		}
		return fmt.Errorf("站点名称包含不允许的字符: %q", r)
	}

	return nil
}
