package binding

import (
	"strings"

	"sslbind/iis"
	"sslbind/util"
)

// DefaultMaxNames 证书名称数量上限（CA 对单证书 SAN 的限制）
const DefaultMaxNames = 100

// Discoverer 证书目标发现器
type Discoverer struct {
	Store    Store
	Version  iis.Version
	MaxNames int // 0 表示 DefaultMaxNames
}

func (d *Discoverer) maxNames() int {
	if d.MaxNames > 0 {
		return d.MaxNames
	}
	return DefaultMaxNames
}

// PerBindingTargets 绑定维度发现：每个唯一主机名一个目标
// suppressHTTP 为 true 时，同站点已有对应 https 绑定的 http 绑定不产生目标
func (d *Discoverer) PerBindingTargets(suppressHTTP bool) ([]CertTarget, error) {
	if !d.Version.Detected() {
		util.Warn("未检测到 IIS，扫描结果为空")
		return []CertTarget{}, nil
	}

	sess, err := d.Store.Open()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	idx, err := NewIndexFromSession(sess)
	if err != nil {
		return nil, err
	}

	targets := make([]CertTarget, 0)
	seen := make(map[string]bool)

	// 站点已按 ID 升序，先到先得的去重即得到稳定输出
	sites := idx.Sites()
	for si := range sites {
		site := &sites[si]
		for _, host := range collectSiteHosts(idx, site, suppressHTTP) {
			if seen[host] {
				continue
			}
			seen[host] = true
			targets = append(targets, CertTarget{
				SiteID:      site.ID,
				Host:        host,
				HostIsDNS:   true,
				WebRootPath: site.PhysicalPath,
				Plugin:      PluginBinding,
			})
		}
	}

	if len(targets) == 0 {
		util.Info("未发现可签发证书的绑定")
	}
	return targets, nil
}

// PerSiteTargets 站点维度发现：每站点一个目标，站点全部主机名作为备用域名
func (d *Discoverer) PerSiteTargets(suppressHTTP bool) ([]CertTarget, error) {
	if !d.Version.Detected() {
		util.Warn("未检测到 IIS，扫描结果为空")
		return []CertTarget{}, nil
	}

	sess, err := d.Store.Open()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	idx, err := NewIndexFromSession(sess)
	if err != nil {
		return nil, err
	}

	targets := make([]CertTarget, 0)
	sites := idx.Sites()
	for si := range sites {
		site := &sites[si]
		hosts := collectSiteHosts(idx, site, suppressHTTP)

		if len(hosts) == 0 {
			util.Info("站点 %s (ID %d) 没有可用主机名，跳过", site.Name, site.ID)
			continue
		}
		if len(hosts) > d.maxNames() {
			util.Info("站点 %s (ID %d) 主机名过多 (%d 超过上限 %d)，跳过",
				site.Name, site.ID, len(hosts), d.maxNames())
			continue
		}

		targets = append(targets, CertTarget{
			SiteID:           site.ID,
			Host:             hosts[0],
			HostIsDNS:        true,
			AlternativeNames: hosts,
			WebRootPath:      site.PhysicalPath,
			Plugin:           PluginSite,
		})
	}

	if len(targets) == 0 {
		util.Info("未发现可签发证书的站点")
	}
	return targets, nil
}

// collectSiteHosts 收集站点全部绑定的主机名：规范化、按序去重
// 主机名大小写匹配与抑制逻辑都收敛在这里，两种发现方式共用
func collectSiteHosts(idx *Index, site *iis.SiteInfo, suppressHTTP bool) []string {
	hosts := make([]string, 0, len(site.Bindings))
	seen := make(map[string]bool, len(site.Bindings))

	for i := range site.Bindings {
		b := &site.Bindings[i]
		if strings.TrimSpace(b.Host) == "" {
			continue
		}
		// 已有对应 https 绑定的 http 绑定视为已覆盖
		if suppressHTTP && strings.EqualFold(b.Protocol, "http") && idx.HasHTTPSForHost(site, b.Host) {
			continue
		}

		host, err := util.NormalizeHost(b.Host)
		if err != nil {
			util.Warn("站点 %s 绑定主机名 %q 无法规范化，跳过: %v", site.Name, b.Host, err)
			continue
		}
		if seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}

	return hosts
}
