package util

import (
	"fmt"
	"os"
	"strings"
)

// DefaultTaskName 定时重扫任务的默认名称
const DefaultTaskName = "SSLBindRescan"

// ValidateTaskName 校验计划任务名称（只允许字母、数字、连字符、下划线）
func ValidateTaskName(taskName string) error {
	if taskName == "" {
		return fmt.Errorf("任务名称不能为空")
	}
	if len(taskName) > 200 {
		return fmt.Errorf("任务名称过长")
	}
	for _, r := range taskName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		return fmt.Errorf("任务名称包含不允许的字符: %q", r)
	}
	return nil
}

// IsTaskExists 检查计划任务是否存在
func IsTaskExists(taskName string) bool {
	if err := ValidateTaskName(taskName); err != nil {
		return false
	}

	output, err := RunCmdCombined("schtasks", "/query", "/tn", taskName)
	if err != nil {
		return false
	}
	return strings.Contains(output, taskName)
}

// CreateTask 创建按小时周期执行的计划任务，任务以给定参数重新运行本程序
// 以 SYSTEM 账户最高权限运行，已存在的同名任务先删除
func CreateTask(taskName string, intervalHours int, args ...string) error {
	if err := ValidateTaskName(taskName); err != nil {
		return fmt.Errorf("无效的任务名称: %w", err)
	}
	if intervalHours < 1 || intervalHours > 720 {
		return fmt.Errorf("执行间隔必须在 1-720 小时之间")
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("获取程序路径失败: %v", err)
	}

	taskRun := fmt.Sprintf("\"%s\"", exePath)
	if len(args) > 0 {
		taskRun += " " + strings.Join(args, " ")
	}

	DeleteTask(taskName)

	output, err := RunCmdCombined("schtasks",
		"/create",
		"/tn", taskName,
		"/tr", taskRun,
		"/sc", "HOURLY",
		"/mo", fmt.Sprintf("%d", intervalHours),
		"/ru", "SYSTEM",
		"/rl", "HIGHEST",
		"/f",
	)
	if err != nil {
		return fmt.Errorf("创建任务失败: %v, 输出: %s", err, TruncateString(output, 200))
	}

	if !IsTaskExists(taskName) {
		return fmt.Errorf("任务创建后验证失败")
	}
	return nil
}

// DeleteTask 删除计划任务，不存在时直接返回
func DeleteTask(taskName string) error {
	if err := ValidateTaskName(taskName); err != nil {
		return fmt.Errorf("无效的任务名称: %w", err)
	}

	if !IsTaskExists(taskName) {
		return nil
	}

	output, err := RunCmdCombined("schtasks", "/delete", "/tn", taskName, "/f")
	if err != nil {
		return fmt.Errorf("删除任务失败: %v, 输出: %s", err, TruncateString(output, 200))
	}
	return nil
}

// RunTaskNow 立即触发一次计划任务
func RunTaskNow(taskName string) error {
	if err := ValidateTaskName(taskName); err != nil {
		return fmt.Errorf("无效的任务名称: %w", err)
	}
	if !IsTaskExists(taskName) {
		return fmt.Errorf("任务不存在: %s", taskName)
	}

	output, err := RunCmdCombined("schtasks", "/run", "/tn", taskName)
	if err != nil {
		return fmt.Errorf("运行任务失败: %v, 输出: %s", err, TruncateString(output, 200))
	}
	return nil
}
