package util

import (
	"os"
	"time"
)

// CleanupTempFile 清理临时文件
// PowerShell 导入 PFX 后可能短暂占用文件，删除失败时转入后台指数退避重试
func CleanupTempFile(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err == nil {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	go func() {
		for i := 0; i < 3; i++ {
			// 1s, 2s, 4s
			time.Sleep(time.Duration(1<<i) * time.Second)

			if err := os.Remove(path); err == nil {
				return
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return
			}
		}
		Warn("无法删除临时文件 %s", path)
	}()
}

// CleanupTempFiles 批量清理临时文件
func CleanupTempFiles(paths ...string) {
	for _, path := range paths {
		CleanupTempFile(path)
	}
}

// CleanupTempFileSync 同步清理临时文件，最多重试 3 次
// 返回 true 表示删除成功或文件不存在
func CleanupTempFileSync(path string) bool {
	if path == "" {
		return true
	}

	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(time.Second)
		}

		if err := os.Remove(path); err == nil {
			return true
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return true
		}
	}

	Warn("无法删除临时文件 %s", path)
	return false
}
