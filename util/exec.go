package util

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// RunCmd 执行命令，返回 stdout（GBK 输出自动转 UTF-8）
func RunCmd(name string, args ...string) (string, error) {
	output, err := hiddenCmd(name, args...).Output()
	if err != nil {
		return "", err
	}
	return decodeConsoleOutput(output), nil
}

// RunCmdCombined 执行命令，返回 stdout + stderr
// 失败时同样返回输出内容，便于拼接错误信息
func RunCmdCombined(name string, args ...string) (string, error) {
	output, err := hiddenCmd(name, args...).CombinedOutput()
	return decodeConsoleOutput(output), err
}

// RunPowerShell 执行 PowerShell 脚本（强制 UTF-8 输出）
func RunPowerShell(script string) (string, error) {
	fullScript := "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; " + script
	output, err := hiddenCmd("powershell", "-NoProfile", "-NonInteractive",
		"-WindowStyle", "Hidden", "-Command", fullScript).Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// RunPowerShellCombined 执行 PowerShell 脚本，返回 stdout + stderr
func RunPowerShellCombined(script string) (string, error) {
	fullScript := "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; " + script
	output, err := hiddenCmd("powershell", "-NoProfile", "-NonInteractive",
		"-WindowStyle", "Hidden", "-Command", fullScript).CombinedOutput()
	return string(output), err
}

// decodeConsoleOutput 处理控制台输出编码
// netsh/appcmd 在中文系统上输出 GBK，转换失败则原样返回
func decodeConsoleOutput(data []byte) string {
	converted, err := GBKToUTF8(data)
	if err != nil {
		return string(data)
	}
	return string(converted)
}

// GBKToUTF8 将 GBK 编码转换为 UTF-8
// 已经是含中文的有效 UTF-8 时不转换
func GBKToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) && containsChineseUTF8(data) {
		return data, nil
	}

	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// containsChineseUTF8 检查是否包含 UTF-8 编码的中文字符
func containsChineseUTF8(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
		data = data[size:]
	}
	return false
}
