//go:build !windows

package util

import "os/exec"

// hiddenCmd 非 Windows 平台无窗口概念，直接构造命令
func hiddenCmd(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}
