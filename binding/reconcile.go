package binding

import (
	"fmt"

	"sslbind/cert"
	"sslbind/iis"
	"sslbind/util"
)

// sitesSection 站点配置节路径（中央证书存储模式需要可写）
const sitesSection = "system.applicationHost/sites"

// Installer 绑定调和器：把目标主机集落实到站点的 https 绑定上
type Installer struct {
	Store   Store
	Version iis.Version
	TLSPort int            // 0 表示 443
	Policy  ConflictPolicy // IP 冲突决策，nil 时冲突主机一律跳过
}

func (ins *Installer) tlsPort() int {
	if ins.TLSPort > 0 {
		return ins.TLSPort
	}
	return 443
}

// Install 直接绑定模式：把已签发证书绑定到目标的全部主机名
// 单个主机的问题（无 http 绑定、主机名非法、冲突跳过）只告警不中止；
// 站点缺失、提交失败中止整个目标
func (ins *Installer) Install(target *CertTarget, issued *cert.IssuedCert) error {
	if issued == nil || issued.Thumbprint == "" {
		return fmt.Errorf("缺少已签发证书")
	}
	return ins.install(target, issued, false)
}

// InstallCentralized 中央证书存储模式：绑定按主机名约定从中央存储取证书
// 需要 IIS 8+，版本不满足时在打开会话前就失败
func (ins *Installer) InstallCentralized(target *CertTarget) error {
	if !ins.Version.SupportsSNI() {
		return fmt.Errorf("%w: 中央证书存储需要 IIS 8+，当前 %s", ErrUnsupportedCapability, ins.Version)
	}
	return ins.install(target, nil, true)
}

func (ins *Installer) install(target *CertTarget, issued *cert.IssuedCert, central bool) error {
	sess, err := ins.Store.Open()
	if err != nil {
		return err
	}
	defer sess.Close()

	if central {
		if locked, err := sess.IsSectionLocked(sitesSection); err != nil {
			util.Debug("查询配置节锁状态失败: %v", err)
		} else if locked {
			if err := sess.Unlock(sitesSection); err != nil {
				util.Warn("解除配置节 %s 的覆盖锁失败: %v", sitesSection, err)
			}
		}
	}

	idx, err := NewIndexFromSession(sess)
	if err != nil {
		return err
	}

	site := idx.SiteByID(target.SiteID)
	if site == nil {
		return fmt.Errorf("%w: ID %d", ErrSiteNotFound, target.SiteID)
	}

	done := make(map[string]bool)
	for _, raw := range target.AllHosts() {
		host, err := util.NormalizeHost(raw)
		if err != nil {
			util.Warn("跳过无法规范化的主机名 %q: %v", raw, err)
			continue
		}
		if done[host] {
			continue
		}
		done[host] = true

		if err := ins.reconcileHost(sess, idx, site, host, issued, central); err != nil {
			return err
		}
	}

	// 整个目标一次提交，不做按主机的部分提交
	if err := sess.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}

// reconcileHost 调和单个主机名的绑定
func (ins *Installer) reconcileHost(sess Session, idx *Index, site *iis.SiteInfo, host string, issued *cert.IssuedCert, central bool) error {
	existing := idx.BindingsForHost(site, host, "https")
	if len(existing) > 0 {
		for _, b := range existing {
			if central {
				if err := ins.convertToCentral(sess, site, b); err != nil {
					return err
				}
			} else {
				if err := ins.replaceCert(sess, site, b, issued); err != nil {
					return err
				}
			}
		}
		return nil
	}

	httpBinding := idx.FirstHTTPBindingForHost(site, host)
	if httpBinding == nil {
		util.Warn("主机 %s 在站点 %s 上没有 http 绑定可参照，跳过", host, site.Name)
		return nil
	}

	ip, ok := ins.resolveIP(host, httpBinding)
	if !ok {
		return nil
	}

	nb := iis.BindingInfo{
		Protocol: "https",
		IP:       ip,
		Port:     ins.tlsPort(),
		Host:     host,
	}
	if central {
		nb.SSLFlags = iis.SSLFlagCentralCertStore | iis.SSLFlagSNI
	} else {
		nb.CertStore = issued.StoreName
		nb.CertHash = issued.Thumbprint
		if ins.Version.SupportsSNI() {
			nb.SSLFlags = iis.SSLFlagSNI
		}
	}

	if err := sess.AddBinding(site.ID, nb); err != nil {
		return err
	}
	site.Bindings = append(site.Bindings, nb)
	util.Info("站点 %s 新增绑定 https/%s", site.Name, nb.BindingInformation())
	return nil
}

// replaceCert 直接绑定模式下更换已有 https 绑定的证书
// 部分 IIS 版本不支持原地改已提交绑定的证书字段，必须整条替换（先删后加）
func (ins *Installer) replaceCert(sess Session, site *iis.SiteInfo, b *iis.BindingInfo, issued *cert.IssuedCert) error {
	replacement := *b
	replacement.CertStore = issued.StoreName
	replacement.CertHash = issued.Thumbprint
	if ins.Version.SupportsSNI() {
		replacement.SSLFlags |= iis.SSLFlagSNI
	}

	if err := sess.RemoveBinding(site.ID, *b); err != nil {
		return err
	}
	if err := sess.AddBinding(site.ID, replacement); err != nil {
		return err
	}

	*b = replacement
	util.Info("站点 %s 替换绑定 https/%s 的证书", site.Name, replacement.BindingInformation())
	return nil
}

// convertToCentral 把已有 https 绑定转为中央证书存储模式
// 已经是中央存储的绑定不做任何变更
func (ins *Installer) convertToCentral(sess Session, site *iis.SiteInfo, b *iis.BindingInfo) error {
	if b.SSLFlags&iis.SSLFlagCentralCertStore != 0 {
		util.Debug("站点 %s 绑定 https/%s 已是中央证书存储", site.Name, b.BindingInformation())
		return nil
	}

	newFlags := iis.SSLFlagCentralCertStore | iis.SSLFlagSNI
	if err := sess.UpdateBindingSSL(site.ID, *b, "", "", newFlags); err != nil {
		return err
	}

	b.CertStore = ""
	b.CertHash = ""
	b.SSLFlags = newFlags
	util.Info("站点 %s 绑定 https/%s 转为中央证书存储", site.Name, b.BindingInformation())
	return nil
}

// resolveIP 以 http 绑定的端点推导新 https 绑定的 IP
// IIS 8+ 上 http 绑定使用专用 IP 时构成冲突，由 Policy 决定沿用还是跳过：
// 专用 IP 的 https 绑定会让同机其他 SNI 绑定拿不到正确证书
func (ins *Installer) resolveIP(host string, httpBinding *iis.BindingInfo) (string, bool) {
	ip := httpBinding.IP
	if ip == "" {
		ip = "*"
	}

	if !ins.Version.SupportsSNI() || httpBinding.HasWildcardIP() {
		return ip, true
	}

	if ins.Policy == nil {
		util.Warn("主机 %s 的 http 绑定使用专用 IP %s，未提供冲突决策，跳过", host, ip)
		return "", false
	}

	if ins.Policy(host, ip) == ConflictUseIP {
		return ip, true
	}
	util.Warn("主机 %s 的 IP 冲突决策为跳过 (IP %s)", host, ip)
	return "", false
}
