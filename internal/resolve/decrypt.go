package resolve

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/yhdm/internal/domain"
)

// 解码端点的固定协议参数。
const (
	keyPrefix = "2890"
	keySuffix = "tB959C"
	ivString  = "2F131BE91247866E"
)

// DeriveKey 按 "2890" + uid + "tB959C" 拼出 AES 密钥。
func DeriveKey(uid string) []byte {
	return []byte(keyPrefix + uid + keySuffix)
}

// Decrypt 解密 base64 密文（AES-CBC + PKCS#7）。
//
// base64 非法为 KindMalformed；密钥长度、密文长度、填充或 UTF-8 错误为 KindCrypto。
func Decrypt(ciphertext, uid string) (string, error) {
	raw, err := decodeBase64(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", &domain.Error{Kind: domain.KindMalformed, Op: "decrypt", Err: err}
	}
	block, err := aes.NewCipher(DeriveKey(uid))
	if err != nil {
		return "", &domain.Error{Kind: domain.KindCrypto, Op: "decrypt", Err: err}
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", domain.Errorf(domain.KindCrypto, "decrypt", "密文长度 %d 不是块大小的整数倍", len(raw))
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(ivString)).CryptBlocks(plain, raw)

	plain, err = unpad(plain)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindCrypto, Op: "decrypt", Err: err}
	}
	if !utf8.Valid(plain) {
		return "", domain.Errorf(domain.KindCrypto, "decrypt", "明文不是合法 UTF-8")
	}
	return string(plain), nil
}

// Encrypt 是 Decrypt 的逆运算，输出标准 base64。
func Encrypt(plaintext, uid string) (string, error) {
	block, err := aes.NewCipher(DeriveKey(uid))
	if err != nil {
		return "", &domain.Error{Kind: domain.KindCrypto, Op: "encrypt", Err: err}
	}
	n := aes.BlockSize - len(plaintext)%aes.BlockSize
	buf := append([]byte(plaintext), bytes.Repeat([]byte{byte(n)}, n)...)
	cipher.NewCBCEncrypter(block, []byte(ivString)).CryptBlocks(buf, buf)
	return base64.StdEncoding.EncodeToString(buf), nil
}

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	if b, rerr := base64.RawStdEncoding.DecodeString(s); rerr == nil {
		return b, nil
	}
	return nil, err
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("空明文")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("填充长度非法：%d", n)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("填充字节不一致")
		}
	}
	return b[:len(b)-n], nil
}
