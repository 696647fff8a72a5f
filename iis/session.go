package iis

import (
	"fmt"
	"strings"

	"sslbind/util"
)

type opKind int

const (
	opAddBinding opKind = iota
	opRemoveBinding
	opUpdateSSL
)

// mutation 一条待提交的绑定变更
type mutation struct {
	kind     opKind
	siteID   int64
	siteName string
	binding  BindingInfo
	sslFlags int // opUpdateSSL 的目标标志
}

// Session 一次对 IIS 配置存储的短连接会话
// 打开时做站点快照，所有变更先入队，Commit 一次性按序落盘
// 不做跨会话缓存，每次调用重新打开以避免读到过期配置
type Session struct {
	sites     []SiteInfo
	mutations []mutation
	closed    bool
}

// OpenSession 打开配置会话并扫描站点快照
func OpenSession() (*Session, error) {
	if err := CheckInstalled(); err != nil {
		return nil, err
	}

	sites, err := ScanSites()
	if err != nil {
		return nil, err
	}

	// 用 http.sys 层的绑定记录补全 https 绑定的证书指纹
	if certs, err := ListSSLCertBindings(); err != nil {
		util.Debug("读取 http.sys 证书绑定失败: %v", err)
	} else {
		enrichCertHashes(sites, certs)
	}

	return &Session{sites: sites}, nil
}

// enrichCertHashes 将 netsh 的证书记录合并进站点绑定快照
func enrichCertHashes(sites []SiteInfo, certs []SSLCertBinding) {
	byEndpoint := make(map[string]*SSLCertBinding, len(certs))
	for i := range certs {
		byEndpoint[strings.ToLower(certs[i].HostnamePort)] = &certs[i]
	}

	for si := range sites {
		for bi := range sites[si].Bindings {
			b := &sites[si].Bindings[bi]
			if !b.IsHTTPS() {
				continue
			}

			key := fmt.Sprintf("%s:%d", strings.ToLower(b.Host), b.Port)
			if b.SSLFlags&SSLFlagSNI == 0 || b.Host == "" {
				ip := b.IP
				if b.HasWildcardIP() {
					ip = "0.0.0.0"
				}
				key = fmt.Sprintf("%s:%d", ip, b.Port)
			}

			if record, ok := byEndpoint[key]; ok {
				b.CertHash = record.CertHash
				if record.CertStoreName != "" {
					b.CertStore = record.CertStoreName
				}
			}
		}
	}
}

// Sites 返回会话打开时的站点快照
func (s *Session) Sites() ([]SiteInfo, error) {
	if s.closed {
		return nil, fmt.Errorf("会话已关闭")
	}
	return s.sites, nil
}

// siteNameByID 从快照解析站点名称
func (s *Session) siteNameByID(siteID int64) (string, error) {
	for i := range s.sites {
		if s.sites[i].ID == siteID {
			return s.sites[i].Name, nil
		}
	}
	return "", fmt.Errorf("站点不存在: ID %d", siteID)
}

// queue 校验并入队一条变更
func (s *Session) queue(kind opKind, siteID int64, b BindingInfo, flags int) error {
	if s.closed {
		return fmt.Errorf("会话已关闭")
	}

	siteName, err := s.siteNameByID(siteID)
	if err != nil {
		return err
	}
	if err := util.ValidateSiteName(siteName); err != nil {
		return fmt.Errorf("无效的站点名称: %w", err)
	}
	if err := util.ValidatePort(b.Port); err != nil {
		return fmt.Errorf("无效的端口: %w", err)
	}
	if b.Host != "" {
		if err := util.ValidateHostname(b.Host); err != nil {
			return fmt.Errorf("无效的主机名: %w", err)
		}
	}

	s.mutations = append(s.mutations, mutation{
		kind:     kind,
		siteID:   siteID,
		siteName: siteName,
		binding:  b,
		sslFlags: flags,
	})
	return nil
}

// AddBinding 入队添加绑定
func (s *Session) AddBinding(siteID int64, b BindingInfo) error {
	return s.queue(opAddBinding, siteID, b, b.SSLFlags)
}

// RemoveBinding 入队移除绑定
func (s *Session) RemoveBinding(siteID int64, b BindingInfo) error {
	return s.queue(opRemoveBinding, siteID, b, 0)
}

// UpdateBindingSSL 入队原地更新绑定的证书属性与 sslFlags
// certStore/certHash 传空表示清除显式证书引用（中央证书存储模式）
func (s *Session) UpdateBindingSSL(siteID int64, b BindingInfo, certStore, certHash string, sslFlags int) error {
	updated := b
	updated.CertStore = certStore
	updated.CertHash = certHash
	return s.queue(opUpdateSSL, siteID, updated, sslFlags)
}

// Commit 按序执行全部排队变更，一次提交
// 任何一条失败即中止，剩余变更不再执行
func (s *Session) Commit() error {
	if s.closed {
		return fmt.Errorf("会话已关闭")
	}

	for _, m := range s.mutations {
		if err := s.apply(m); err != nil {
			return err
		}
	}

	s.mutations = nil
	return nil
}

// apply 执行单条变更
func (s *Session) apply(m mutation) error {
	switch m.kind {
	case opAddBinding:
		if err := runAppcmd(addBindingArgs(m.siteName, m.binding)...); err != nil {
			return err
		}
		return s.applyCertAssignment(m.binding)

	case opRemoveBinding:
		if m.binding.IsHTTPS() && m.binding.CertHash != "" {
			// 先摘掉 http.sys 层的证书记录，失败不阻塞绑定移除
			if err := s.removeCertAssignment(m.binding); err != nil {
				util.Debug("解除证书绑定失败: %v", err)
			}
		}
		return runAppcmd(removeBindingArgs(m.siteName, m.binding)...)

	case opUpdateSSL:
		if err := runAppcmd(setSSLFlagsArgs(m.siteName, m.binding, m.sslFlags)...); err != nil {
			return err
		}
		if m.sslFlags&SSLFlagCentralCertStore != 0 {
			// 转中央证书存储后显式证书记录不再生效，摘除旧记录
			if err := s.removeCertAssignment(m.binding); err != nil {
				util.Debug("解除证书绑定失败: %v", err)
			}
		}
		return nil
	}

	return fmt.Errorf("未知的变更类型: %d", m.kind)
}

// applyCertAssignment 将绑定上的证书指纹落到 http.sys
func (s *Session) applyCertAssignment(b BindingInfo) error {
	if !b.IsHTTPS() || b.CertHash == "" {
		return nil
	}

	if b.SSLFlags&SSLFlagSNI != 0 && b.Host != "" {
		return AssignCertHost(b.Host, b.Port, b.CertHash, b.CertStore)
	}
	return AssignCertIP(b.IP, b.Port, b.CertHash, b.CertStore)
}

// removeCertAssignment 摘除绑定对应的 http.sys 证书记录
func (s *Session) removeCertAssignment(b BindingInfo) error {
	if b.SSLFlags&SSLFlagSNI != 0 && b.Host != "" {
		return RemoveCertHost(b.Host, b.Port)
	}
	return RemoveCertIP(b.IP, b.Port)
}

// IsSectionLocked 查询配置节覆盖锁
func (s *Session) IsSectionLocked(section string) (bool, error) {
	return SectionLocked(section)
}

// Unlock 解除配置节覆盖锁
func (s *Session) Unlock(section string) error {
	return UnlockSection(section)
}

// Close 释放会话，未提交的变更直接丢弃
func (s *Session) Close() {
	if !s.closed && len(s.mutations) > 0 {
		util.Debug("会话关闭时丢弃 %d 条未提交变更", len(s.mutations))
	}
	s.closed = true
	s.mutations = nil
	s.sites = nil
}
