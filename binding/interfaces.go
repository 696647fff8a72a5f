package binding

import "sslbind/iis"

// Session 配置存储会话
// 打开后站点视图固定为快照；变更入队，Commit 一次性落盘；
// Close 必须在所有退出路径上调用
type Session interface {
	// Sites 返回站点快照
	Sites() ([]iis.SiteInfo, error)
	// AddBinding 添加绑定
	AddBinding(siteID int64, b iis.BindingInfo) error
	// RemoveBinding 移除绑定
	RemoveBinding(siteID int64, b iis.BindingInfo) error
	// UpdateBindingSSL 原地更新绑定的证书引用与 sslFlags
	UpdateBindingSSL(siteID int64, b iis.BindingInfo, certStore, certHash string, sslFlags int) error
	// Commit 提交全部排队变更
	Commit() error
	// Close 释放会话
	Close()
	// IsSectionLocked 查询配置节覆盖锁
	IsSectionLocked(section string) (bool, error)
	// Unlock 解除配置节覆盖锁
	Unlock(section string) error
}

// Store 配置存储入口
type Store interface {
	// Open 打开一次会话
	Open() (Session, error)
}

// DefaultStore 真实 IIS 配置存储
type DefaultStore struct{}

func (DefaultStore) Open() (Session, error) {
	return iis.OpenSession()
}

// ConflictDecision IP 冲突的处理决定
type ConflictDecision int

const (
	// ConflictUseIP 沿用 HTTP 绑定的专用 IP（该 IP 上放弃 SNI 共存）
	ConflictUseIP ConflictDecision = iota
	// ConflictSkipHost 跳过该主机，不创建绑定
	ConflictSkipHost
)

// ConflictPolicy IP 冲突决策回调
// IIS 8+ 上 HTTP 绑定使用专用 IP 时，新建 https 绑定沿用该 IP 会让
// 同机其他 SNI 绑定失效，是否继续由调用方决定，引擎不做交互
type ConflictPolicy func(host, ip string) ConflictDecision
