//go:build windows

package util

import (
	"os/exec"
	"syscall"
)

// hiddenCmd 构造隐藏窗口的命令（计划任务/服务环境下不闪黑框）
func hiddenCmd(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
	return cmd
}
