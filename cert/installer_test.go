package cert

import (
	"strings"
	"testing"
)

func TestInstallPFXFileMissing(t *testing.T) {
	if _, err := InstallPFX(`C:\nonexistent\missing.pfx`, ""); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}

func TestSimplifyImportError(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"密码错误", "The specified network password is not correct", "密码错误或证书文件损坏"},
		{"中文密码错误", "指定的密码不正确", "密码错误或证书文件损坏"},
		{"权限不足", "Access is denied", "访问被拒绝，请以管理员权限运行"},
		{"文件不存在", "The system cannot find the file: not found", "文件不存在"},
		{"格式无效", "invalid certificate data", "无效的证书文件格式"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := simplifyImportError(tt.output); got != tt.want {
				t.Errorf("simplifyImportError(%q) = %q, 期望 %q", tt.output, got, tt.want)
			}
		})
	}

	t.Run("未知错误保留原始输出", func(t *testing.T) {
		got := simplifyImportError("something unexpected happened")
		if !strings.Contains(got, "something unexpected happened") {
			t.Errorf("simplifyImportError = %q", got)
		}
	})
}
