package iis

import (
	"fmt"
	"strconv"
	"strings"
)

// SSL 绑定标志 (IIS sslFlags)
const (
	SSLFlagNone             = 0
	SSLFlagSNI              = 1 // SNI（服务器名称指示）
	SSLFlagCentralCertStore = 2 // 中央证书存储
)

// Version IIS 版本（主版本决定 SNI / 中央证书存储能力）
type Version struct {
	Major int
	Minor int
}

// Detected 是否检测到 IIS
func (v Version) Detected() bool {
	return v.Major > 0
}

// SupportsSNI IIS 8 起支持 SNI 与中央证书存储
func (v Version) SupportsSNI() bool {
	return v.Major >= 8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SiteInfo IIS 站点信息
type SiteInfo struct {
	ID           int64
	Name         string
	State        string
	PhysicalPath string // 根应用物理路径
	Bindings     []BindingInfo
}

// BindingInfo 绑定信息
// IP 为 "*" 表示通配地址；Host 为空表示无主机头绑定
type BindingInfo struct {
	Protocol  string
	IP        string
	Port      int
	Host      string
	CertHash  string // https 绑定的证书指纹（大写十六进制）
	CertStore string // 证书存储名，一般为 "My"
	SSLFlags  int
}

// IsHTTPS 是否为 https 绑定
func (b BindingInfo) IsHTTPS() bool {
	return strings.EqualFold(b.Protocol, "https")
}

// HasWildcardIP 是否绑定在通配地址上
func (b BindingInfo) HasWildcardIP() bool {
	return b.IP == "" || b.IP == "*" || b.IP == "0.0.0.0"
}

// BindingInformation 生成 IIS 绑定信息串，格式 "ip:port:host"，如 "*:443:www.example.com"
func (b BindingInfo) BindingInformation() string {
	ip := b.IP
	if ip == "" {
		ip = "*"
	}
	return fmt.Sprintf("%s:%d:%s", ip, b.Port, b.Host)
}

// ParseBindingInformation 解析 "ip:port:host" 绑定信息串
// IPv6 地址带方括号，按最后两个冒号切分
func ParseBindingInformation(protocol, info string) (BindingInfo, bool) {
	last := strings.LastIndex(info, ":")
	if last < 0 {
		return BindingInfo{}, false
	}
	host := info[last+1:]

	rest := info[:last]
	mid := strings.LastIndex(rest, ":")
	if mid < 0 {
		return BindingInfo{}, false
	}

	port, err := strconv.Atoi(rest[mid+1:])
	if err != nil || port <= 0 {
		return BindingInfo{}, false
	}

	ip := rest[:mid]
	if ip == "" {
		ip = "*"
	}

	return BindingInfo{
		Protocol: strings.ToLower(protocol),
		IP:       ip,
		Port:     port,
		Host:     host,
	}, true
}
