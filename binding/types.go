package binding

// 目标来源标记
const (
	PluginBinding = "IISBinding" // 绑定维度发现
	PluginSite    = "IISSite"    // 站点维度发现
)

// CertTarget 证书目标：一个或一组要共用一张证书的主机名
type CertTarget struct {
	SiteID           int64    // 所属站点 ID
	Host             string   // 主域名（已规范化）
	HostIsDNS        bool     // 主域名是否为 DNS 名称
	AlternativeNames []string // 备用域名（多域名证书）
	WebRootPath      string   // 站点根应用物理路径
	Plugin           string   // 来源标记
}

// AllHosts 主域名 + 备用域名，按序去重
func (t *CertTarget) AllHosts() []string {
	hosts := make([]string, 0, len(t.AlternativeNames)+1)
	seen := make(map[string]bool, len(t.AlternativeNames)+1)

	add := func(h string) {
		if h == "" || seen[h] {
			return
		}
		seen[h] = true
		hosts = append(hosts, h)
	}

	add(t.Host)
	for _, h := range t.AlternativeNames {
		add(h)
	}
	return hosts
}
