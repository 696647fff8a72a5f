package binding

import (
	"fmt"
	"strings"

	"sslbind/iis"
)

// mockMutation 记录一条入队的绑定变更
type mockMutation struct {
	siteID  int64
	binding iis.BindingInfo
}

// mockSSLUpdate 记录一条原地 SSL 更新
type mockSSLUpdate struct {
	siteID    int64
	binding   iis.BindingInfo
	certStore string
	certHash  string
	sslFlags  int
}

// mockStore 内存配置存储：Open 返回快照副本，Commit 将变更落回 sites
type mockStore struct {
	sites    []iis.SiteInfo
	openErr  error
	sessions []*mockSession
}

func (st *mockStore) Open() (Session, error) {
	if st.openErr != nil {
		return nil, st.openErr
	}
	s := &mockSession{store: st, sites: cloneSites(st.sites)}
	st.sessions = append(st.sessions, s)
	return s, nil
}

// lastSession 最近一次打开的会话
func (st *mockStore) lastSession() *mockSession {
	if len(st.sessions) == 0 {
		return nil
	}
	return st.sessions[len(st.sessions)-1]
}

// mockSession 模拟配置存储会话
type mockSession struct {
	store *mockStore
	sites []iis.SiteInfo

	added   []mockMutation
	removed []mockMutation
	updated []mockSSLUpdate

	commitCount int
	closed      bool

	commitErr        error
	lockedSections   map[string]bool
	unlockedSections []string
}

func (s *mockSession) Sites() ([]iis.SiteInfo, error) {
	return s.sites, nil
}

func (s *mockSession) AddBinding(siteID int64, b iis.BindingInfo) error {
	s.added = append(s.added, mockMutation{siteID: siteID, binding: b})
	return nil
}

func (s *mockSession) RemoveBinding(siteID int64, b iis.BindingInfo) error {
	s.removed = append(s.removed, mockMutation{siteID: siteID, binding: b})
	return nil
}

func (s *mockSession) UpdateBindingSSL(siteID int64, b iis.BindingInfo, certStore, certHash string, sslFlags int) error {
	s.updated = append(s.updated, mockSSLUpdate{
		siteID:    siteID,
		binding:   b,
		certStore: certStore,
		certHash:  certHash,
		sslFlags:  sslFlags,
	})
	return nil
}

// Commit 把排队的变更按序落回 store 的权威站点数据
func (s *mockSession) Commit() error {
	s.commitCount++
	if s.commitErr != nil {
		return s.commitErr
	}
	if s.store == nil {
		return nil
	}

	for _, m := range s.removed {
		site := s.store.siteByID(m.siteID)
		if site == nil {
			return fmt.Errorf("站点不存在: %d", m.siteID)
		}
		for i := range site.Bindings {
			if sameEndpoint(site.Bindings[i], m.binding) {
				site.Bindings = append(site.Bindings[:i], site.Bindings[i+1:]...)
				break
			}
		}
	}
	for _, m := range s.added {
		site := s.store.siteByID(m.siteID)
		if site == nil {
			return fmt.Errorf("站点不存在: %d", m.siteID)
		}
		site.Bindings = append(site.Bindings, m.binding)
	}
	for _, u := range s.updated {
		site := s.store.siteByID(u.siteID)
		if site == nil {
			return fmt.Errorf("站点不存在: %d", u.siteID)
		}
		for i := range site.Bindings {
			if sameEndpoint(site.Bindings[i], u.binding) {
				site.Bindings[i].CertStore = u.certStore
				site.Bindings[i].CertHash = u.certHash
				site.Bindings[i].SSLFlags = u.sslFlags
				break
			}
		}
	}
	return nil
}

func (s *mockSession) Close() {
	s.closed = true
}

func (s *mockSession) IsSectionLocked(section string) (bool, error) {
	return s.lockedSections[section], nil
}

func (s *mockSession) Unlock(section string) error {
	s.unlockedSections = append(s.unlockedSections, section)
	if s.lockedSections != nil {
		s.lockedSections[section] = false
	}
	return nil
}

func (st *mockStore) siteByID(id int64) *iis.SiteInfo {
	for i := range st.sites {
		if st.sites[i].ID == id {
			return &st.sites[i]
		}
	}
	return nil
}

// sameEndpoint 按 (协议, 绑定信息串) 匹配绑定
func sameEndpoint(a, b iis.BindingInfo) bool {
	return strings.EqualFold(a.Protocol, b.Protocol) &&
		strings.EqualFold(a.BindingInformation(), b.BindingInformation())
}

// cloneSites 深拷贝站点快照
func cloneSites(sites []iis.SiteInfo) []iis.SiteInfo {
	cloned := make([]iis.SiteInfo, len(sites))
	for i, s := range sites {
		cloned[i] = s
		cloned[i].Bindings = make([]iis.BindingInfo, len(s.Bindings))
		copy(cloned[i].Bindings, s.Bindings)
	}
	return cloned
}
