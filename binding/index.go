package binding

import (
	"sort"
	"strings"

	"sslbind/iis"
)

// SiteBinding 站点与其一条绑定
type SiteBinding struct {
	Site    *iis.SiteInfo
	Binding *iis.BindingInfo
}

// Index 一次会话内的站点绑定视图
// 不跨会话缓存，每次操作用新快照重建
type Index struct {
	sites []iis.SiteInfo
}

// NewIndex 从站点快照构建索引，站点按 ID 升序
func NewIndex(sites []iis.SiteInfo) *Index {
	sorted := make([]iis.SiteInfo, len(sites))
	copy(sorted, sites)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &Index{sites: sorted}
}

// NewIndexFromSession 从会话快照构建索引
func NewIndexFromSession(s Session) (*Index, error) {
	sites, err := s.Sites()
	if err != nil {
		return nil, err
	}
	return NewIndex(sites), nil
}

// Sites 返回按 ID 升序的站点（可通过元素指针同步内存视图）
func (ix *Index) Sites() []iis.SiteInfo {
	return ix.sites
}

// SiteByID 按 ID 查找站点
func (ix *Index) SiteByID(id int64) *iis.SiteInfo {
	for i := range ix.sites {
		if ix.sites[i].ID == id {
			return &ix.sites[i]
		}
	}
	return nil
}

// AllBindings 全部 (站点, 绑定) 对，排除空主机名绑定
func (ix *Index) AllBindings() []SiteBinding {
	pairs := make([]SiteBinding, 0)
	for si := range ix.sites {
		site := &ix.sites[si]
		for bi := range site.Bindings {
			if strings.TrimSpace(site.Bindings[bi].Host) == "" {
				continue
			}
			pairs = append(pairs, SiteBinding{Site: site, Binding: &site.Bindings[bi]})
		}
	}
	return pairs
}

// BindingsForHost 站点内匹配主机名与协议的绑定
// 主机名不区分大小写，协议精确匹配
func (ix *Index) BindingsForHost(site *iis.SiteInfo, host, protocol string) []*iis.BindingInfo {
	matches := make([]*iis.BindingInfo, 0)
	for i := range site.Bindings {
		b := &site.Bindings[i]
		if strings.EqualFold(b.Protocol, protocol) && strings.EqualFold(b.Host, host) {
			matches = append(matches, b)
		}
	}
	return matches
}

// FirstHTTPBindingForHost 站点内第一条匹配主机名的 http 绑定
func (ix *Index) FirstHTTPBindingForHost(site *iis.SiteInfo, host string) *iis.BindingInfo {
	for i := range site.Bindings {
		b := &site.Bindings[i]
		if strings.EqualFold(b.Protocol, "http") && strings.EqualFold(b.Host, host) {
			return b
		}
	}
	return nil
}

// HasHTTPSForHost 站点内是否已有该主机名的 https 绑定
func (ix *Index) HasHTTPSForHost(site *iis.SiteInfo, host string) bool {
	for i := range site.Bindings {
		b := &site.Bindings[i]
		if b.IsHTTPS() && strings.EqualFold(b.Host, host) {
			return true
		}
	}
	return false
}
