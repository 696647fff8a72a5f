package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// newTestCert 生成自签名测试证书和 EC 私钥
func newTestCert(t *testing.T, cn string) (certPEM, keyPEM string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("生成私钥失败: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     []string{cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("生成证书失败: %v", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("编码私钥失败: %v", err)
	}

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM
}

func TestEncodePFX(t *testing.T) {
	certPEM, keyPEM := newTestCert(t, "test.example.com")

	pfxData, err := EncodePFX(certPEM, keyPEM, "", "secret")
	if err != nil {
		t.Fatalf("EncodePFX 错误: %v", err)
	}

	_, leaf, chain, err := pkcs12.DecodeChain(pfxData, "secret")
	if err != nil {
		t.Fatalf("解码 PFX 失败: %v", err)
	}
	if leaf.Subject.CommonName != "test.example.com" {
		t.Errorf("叶子证书 CN = %q", leaf.Subject.CommonName)
	}
	if len(chain) != 0 {
		t.Errorf("链长度 = %d, 期望 0", len(chain))
	}
}

func TestEncodePFXWithChain(t *testing.T) {
	certPEM, keyPEM := newTestCert(t, "leaf.example.com")
	caPEM, _ := newTestCert(t, "Intermediate CA")

	pfxData, err := EncodePFX(certPEM, keyPEM, caPEM, "secret")
	if err != nil {
		t.Fatalf("EncodePFX 错误: %v", err)
	}

	_, _, chain, err := pkcs12.DecodeChain(pfxData, "secret")
	if err != nil {
		t.Fatalf("解码 PFX 失败: %v", err)
	}
	if len(chain) != 1 || chain[0].Subject.CommonName != "Intermediate CA" {
		t.Errorf("中间链 = %v", chain)
	}
}

func TestEncodePFXInvalidInput(t *testing.T) {
	_, keyPEM := newTestCert(t, "test.example.com")

	if _, err := EncodePFX("not pem", keyPEM, "", ""); err == nil {
		t.Error("非法证书 PEM 应返回错误")
	}
	certPEM, _ := newTestCert(t, "test.example.com")
	if _, err := EncodePFX(certPEM, "not pem", "", ""); err == nil {
		t.Error("非法私钥 PEM 应返回错误")
	}
}

func TestPEMToPFXFile(t *testing.T) {
	certPEM, keyPEM := newTestCert(t, "test.example.com")

	pfxPath, err := PEMToPFXFile(certPEM, keyPEM, "", "secret")
	if err != nil {
		t.Fatalf("PEMToPFXFile 错误: %v", err)
	}
	defer os.Remove(pfxPath)

	data, err := os.ReadFile(pfxPath)
	if err != nil {
		t.Fatalf("读取 PFX 文件失败: %v", err)
	}
	if _, _, err := pkcs12.Decode(data, "secret"); err != nil {
		t.Errorf("PFX 文件内容无效: %v", err)
	}
}

func TestSplitPEMCertChain(t *testing.T) {
	leafPEM, _ := newTestCert(t, "leaf.example.com")
	caPEM, _ := newTestCert(t, "CA")

	leaf, chain := SplitPEMCertChain(leafPEM + caPEM)
	if leaf != leafPEM {
		t.Error("叶子证书应为第一个 CERTIFICATE 块")
	}
	if chain != caPEM {
		t.Error("剩余证书应归入链")
	}

	// 单证书没有链
	leaf, chain = SplitPEMCertChain(leafPEM)
	if leaf != leafPEM || chain != "" {
		t.Errorf("单证书拆分结果: chain=%q", chain)
	}

	// 非 PEM 输入原样返回
	leaf, chain = SplitPEMCertChain("garbage")
	if leaf != "garbage" || chain != "" {
		t.Errorf("非 PEM 输入拆分结果: leaf=%q chain=%q", leaf, chain)
	}
}

func TestCentralFileName(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"www.example.com", "www.example.com.pfx"},
		{"WWW.Example.com", "www.example.com.pfx"},
		{"*.example.com", "_.example.com.pfx"},
	}
	for _, tt := range tests {
		if got := CentralFileName(tt.host); got != tt.want {
			t.Errorf("CentralFileName(%q) = %q, 期望 %q", tt.host, got, tt.want)
		}
	}
}

func TestExportCentral(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "central")
	certPEM, keyPEM := newTestCert(t, "shop.example.com")

	path, err := ExportCentralPEM(dir, "shop.example.com", certPEM, keyPEM, "", "secret")
	if err != nil {
		t.Fatalf("ExportCentralPEM 错误: %v", err)
	}
	if filepath.Base(path) != "shop.example.com.pfx" {
		t.Errorf("文件名 = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取中央证书文件失败: %v", err)
	}
	if _, _, err := pkcs12.Decode(data, "secret"); err != nil {
		t.Errorf("中央证书文件内容无效: %v", err)
	}

	// 现成 PFX 原样落盘
	path, err = ExportCentralPFX(dir, "*.example.com", data)
	if err != nil {
		t.Fatalf("ExportCentralPFX 错误: %v", err)
	}
	if filepath.Base(path) != "_.example.com.pfx" {
		t.Errorf("通配符文件名 = %q", filepath.Base(path))
	}

	// 未配置目录
	if _, err := ExportCentralPFX("", "a.example.com", data); err == nil {
		t.Error("空目录应返回错误")
	}
}

func TestRandomSuffix(t *testing.T) {
	a, b := randomSuffix(8), randomSuffix(8)
	if len(a) != 8 {
		t.Errorf("后缀长度 = %d", len(a))
	}
	if a == b {
		t.Error("两次生成的随机后缀不应相同")
	}
	if strings.ContainsAny(a, "/\\:") {
		t.Errorf("后缀包含非法文件名字符: %q", a)
	}
}
