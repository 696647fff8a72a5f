package cert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sslbind/util"
)

// IssuedCert 已签发并安装到证书存储的证书句柄
// 引擎绑定时只消费指纹与存储名两个属性
type IssuedCert struct {
	Thumbprint string // 40位大写十六进制
	StoreName  string // 证书存储名，一般为 "My"
}

// InstallPFX 安装 PFX 证书到 LocalMachine\My，返回可供绑定使用的证书句柄
func InstallPFX(pfxPath, password string) (*IssuedCert, error) {
	if _, err := os.Stat(pfxPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("PFX 文件不存在: %s", pfxPath)
	}

	absPath, err := filepath.Abs(pfxPath)
	if err != nil {
		return nil, fmt.Errorf("获取绝对路径失败: %v", err)
	}

	script := fmt.Sprintf(`
$password = ConvertTo-SecureString -String '%s' -Force -AsPlainText
$cert = Import-PfxCertificate -FilePath '%s' -CertStoreLocation Cert:\LocalMachine\My -Password $password -Exportable
if ($cert) {
    Write-Output "Thumbprint: $($cert.Thumbprint)"
} else {
    Write-Error "导入失败"
}
`, util.EscapePowerShellString(password), util.EscapePowerShellString(absPath))

	output, err := util.RunPowerShellCombined(script)
	if err != nil {
		return nil, fmt.Errorf("%s", simplifyImportError(output))
	}

	thumbprint := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Thumbprint: ") {
			thumbprint = util.CleanThumbprint(strings.TrimPrefix(line, "Thumbprint: "))
			break
		}
	}
	if thumbprint == "" {
		return nil, fmt.Errorf("导入成功但未能获取证书指纹")
	}
	if err := util.ValidateThumbprint(thumbprint); err != nil {
		return nil, fmt.Errorf("导入返回的指纹无效: %w", err)
	}

	return &IssuedCert{Thumbprint: thumbprint, StoreName: "My"}, nil
}

// InstallPEM 从 PEM 证书和私钥安装（先转 PFX 再导入）
func InstallPEM(certPath, keyPath, password string) (*IssuedCert, error) {
	certBytes, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("读取证书文件失败: %w", err)
	}
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("读取私钥文件失败: %w", err)
	}

	leafPEM, chainPEM := SplitPEMCertChain(string(certBytes))
	pfxPath, err := PEMToPFXFile(leafPEM, string(keyBytes), chainPEM, password)
	if err != nil {
		return nil, fmt.Errorf("转换 PFX 失败: %w", err)
	}
	defer util.CleanupTempFile(pfxPath)

	return InstallPFX(pfxPath, password)
}

// simplifyImportError 简化 PFX 导入错误信息
func simplifyImportError(output string) string {
	outputLower := strings.ToLower(output)

	if strings.Contains(outputLower, "password") || strings.Contains(outputLower, "密码") {
		return "密码错误或证书文件损坏"
	}
	if strings.Contains(outputLower, "access") || strings.Contains(outputLower, "denied") {
		return "访问被拒绝，请以管理员权限运行"
	}
	if strings.Contains(outputLower, "not found") || strings.Contains(outputLower, "找不到") {
		return "文件不存在"
	}
	if strings.Contains(outputLower, "invalid") || strings.Contains(outputLower, "无效") {
		return "无效的证书文件格式"
	}

	return "导入失败: " + util.TruncateString(output, 100)
}
