package cert

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// EncodePFX 将 PEM 格式的证书、私钥和中间链编码为 PFX
func EncodePFX(certPEM, keyPEM, intermediatePEM, password string) ([]byte, error) {
	privateKey, err := parsePrivateKeyFromPEM(keyPEM, password)
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}

	certBlock, _ := pem.Decode([]byte(certPEM))
	if certBlock == nil {
		return nil, fmt.Errorf("无法解析证书 PEM")
	}
	leaf, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("解析证书失败: %w", err)
	}

	var caCerts []*x509.Certificate
	if intermediatePEM != "" {
		remaining := []byte(intermediatePEM)
		for {
			block, rest := pem.Decode(remaining)
			if block == nil {
				break
			}
			if block.Type == "CERTIFICATE" {
				if caCert, err := x509.ParseCertificate(block.Bytes); err == nil {
					caCerts = append(caCerts, caCert)
				}
			}
			remaining = rest
		}
	}

	pfxData, err := pkcs12.Modern.Encode(privateKey, leaf, caCerts, password)
	if err != nil {
		return nil, fmt.Errorf("生成 PFX 失败: %w", err)
	}
	return pfxData, nil
}

// PEMToPFXFile 将 PEM 证书和私钥转换为临时 PFX 文件
// 返回 PFX 文件路径，调用方负责删除
func PEMToPFXFile(certPEM, keyPEM, intermediatePEM, password string) (string, error) {
	pfxData, err := EncodePFX(certPEM, keyPEM, intermediatePEM, password)
	if err != nil {
		return "", err
	}

	pfxPath := filepath.Join(os.TempDir(), fmt.Sprintf("cert_%s.pfx", randomSuffix(8)))
	if err := os.WriteFile(pfxPath, pfxData, 0600); err != nil {
		return "", fmt.Errorf("写入 PFX 文件失败: %w", err)
	}
	return pfxPath, nil
}

// SplitPEMCertChain 把含链的证书 PEM 拆成叶子证书和中间链
func SplitPEMCertChain(pemData string) (leaf string, chain string) {
	rest := []byte(pemData)
	var chainBuilder strings.Builder

	for {
		block, remaining := pem.Decode(rest)
		if block == nil {
			break
		}
		rest = remaining
		if block.Type != "CERTIFICATE" {
			continue
		}
		encoded := pem.EncodeToMemory(block)
		if encoded == nil {
			continue
		}
		if leaf == "" {
			leaf = string(encoded)
		} else {
			chainBuilder.Write(encoded)
		}
	}

	if leaf == "" {
		return pemData, ""
	}
	return leaf, chainBuilder.String()
}

// ===== 中央证书存储 =====

// CentralFileName 中央证书存储的文件命名：<主机名>.pfx，通配符 "*" 写作 "_"
func CentralFileName(host string) string {
	return strings.ReplaceAll(strings.ToLower(host), "*", "_") + ".pfx"
}

// ExportCentralPEM 把 PEM 证书按主机名写入中央证书存储目录
func ExportCentralPEM(dir, host, certPEM, keyPEM, intermediatePEM, password string) (string, error) {
	pfxData, err := EncodePFX(certPEM, keyPEM, intermediatePEM, password)
	if err != nil {
		return "", err
	}
	return writeCentralFile(dir, host, pfxData)
}

// ExportCentralPFX 把现成的 PFX 数据按主机名写入中央证书存储目录
func ExportCentralPFX(dir, host string, pfxData []byte) (string, error) {
	return writeCentralFile(dir, host, pfxData)
}

func writeCentralFile(dir, host string, pfxData []byte) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("未配置中央证书存储目录")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("创建中央证书存储目录失败: %w", err)
	}

	path := filepath.Join(dir, CentralFileName(host))
	if err := os.WriteFile(path, pfxData, 0600); err != nil {
		return "", fmt.Errorf("写入中央证书文件失败: %w", err)
	}
	return path, nil
}

// randomSuffix 生成临时文件名随机后缀
func randomSuffix(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		// 回退到时间戳
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
