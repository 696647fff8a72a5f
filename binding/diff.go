package binding

import (
	"sort"
	"strings"
)

// TargetChanges 两次发现之间的目标差异
type TargetChanges struct {
	WebRootChanged  bool
	PreviousWebRoot string
	CurrentWebRoot  string
	AddedHosts      []string // fresh 有而 saved 没有
	RemovedHosts    []string // saved 有而 fresh 没有
}

// HasChanges 是否存在任何差异
func (c *TargetChanges) HasChanges() bool {
	return c.WebRootChanged || len(c.AddedHosts) > 0 || len(c.RemovedHosts) > 0
}

// DiffTarget 比较已保存目标与新发现目标
// 纯函数，不改动任何一方；合并约定以 fresh 的值为准，落盘由调用方完成
func DiffTarget(saved, fresh *CertTarget) *TargetChanges {
	changes := &TargetChanges{
		PreviousWebRoot: saved.WebRootPath,
		CurrentWebRoot:  fresh.WebRootPath,
	}

	if !strings.EqualFold(saved.WebRootPath, fresh.WebRootPath) {
		changes.WebRootChanged = true
	}

	savedHosts := hostSet(saved)
	freshHosts := hostSet(fresh)

	for h := range freshHosts {
		if !savedHosts[h] {
			changes.AddedHosts = append(changes.AddedHosts, h)
		}
	}
	for h := range savedHosts {
		if !freshHosts[h] {
			changes.RemovedHosts = append(changes.RemovedHosts, h)
		}
	}

	sort.Strings(changes.AddedHosts)
	sort.Strings(changes.RemovedHosts)
	return changes
}

func hostSet(t *CertTarget) map[string]bool {
	set := make(map[string]bool)
	for _, h := range t.AllHosts() {
		set[strings.ToLower(h)] = true
	}
	return set
}
