package infra

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// LocalCipher はマスターキーによるAES-256-GCMのラップ・アンラップを提供する。
// Cloud KMSを使わない環境（開発・セルフホスト）向けのKeyCipher実装。
type LocalCipher struct {
	aead cipher.AEAD
}

// NewLocalCipher はBase64エンコードされた32バイトのマスターキーからLocalCipherを生成する。
func NewLocalCipher(masterKey string) (*LocalCipher, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("master key is required")
	}
	key, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &LocalCipher{aead: aead}, nil
}

// Encrypt は平文をマスターキーで暗号化する。出力は nonce | ciphertext の連結。
func (c *LocalCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt は暗号文をマスターキーで復号する。
func (c *LocalCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, rest := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, rest, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}
