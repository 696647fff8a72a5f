package binding

import "errors"

var (
	// ErrSiteNotFound 目标站点在配置存储中不存在
	ErrSiteNotFound = errors.New("站点不存在")
	// ErrUnsupportedCapability IIS 版本不满足操作前提
	ErrUnsupportedCapability = errors.New("当前 IIS 版本不支持该操作")
	// ErrCommitFailed 提交配置变更失败
	ErrCommitFailed = errors.New("提交 IIS 配置失败")
)
