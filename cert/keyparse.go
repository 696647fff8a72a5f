package cert

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"
)

// keyParsers 按 PEM 块类型分派的明文私钥解析器
var keyParsers = map[string]func(der []byte) (interface{}, error){
	"RSA PRIVATE KEY": func(der []byte) (interface{}, error) { return x509.ParsePKCS1PrivateKey(der) },
	"EC PRIVATE KEY":  func(der []byte) (interface{}, error) { return x509.ParseECPrivateKey(der) },
	"PRIVATE KEY":     x509.ParsePKCS8PrivateKey,
}

// parsePrivateKeyFromPEM 从 PEM 数据中取第一个私钥块并解析，
// 证书等其他块被跳过
func parsePrivateKeyFromPEM(pemData string, password string) (interface{}, error) {
	for data := []byte(pemData); ; {
		block, rest := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("无法解析私钥 PEM")
		}
		data = rest

		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return parseEncryptedPKCS8(block.Bytes, password)
		}
		if parse := keyParsers[block.Type]; parse != nil {
			der, err := plaintextDER(block, password)
			if err != nil {
				return nil, err
			}
			return parse(der)
		}
	}
}

// parseEncryptedPKCS8 解密并解析加密的 PKCS#8 私钥
func parseEncryptedPKCS8(der []byte, password string) (interface{}, error) {
	if password == "" {
		return nil, fmt.Errorf("私钥已加密，缺少密码")
	}
	key, _, err := pkcs8.ParsePrivateKey(der, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("解密 PKCS#8 私钥失败: %w", err)
	}
	return key, nil
}

// plaintextDER 取得私钥块的明文 DER
// 旧式 PEM 加密（Proc-Type: 4,ENCRYPTED）通过 DEK-Info header 识别，
// 与 PKCS#8 加密不同，必须先解密再按块类型解析
func plaintextDER(block *pem.Block, password string) ([]byte, error) {
	if _, encrypted := block.Headers["DEK-Info"]; !encrypted {
		return block.Bytes, nil
	}
	if password == "" {
		return nil, fmt.Errorf("私钥已加密，缺少密码")
	}
	//nolint:staticcheck // x509.DecryptPEMBlock 已弃用但无替代，旧式 PEM 加密仍需要它
	decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("私钥解密失败: %w", err)
	}
	return decrypted, nil
}
