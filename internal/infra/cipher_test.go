package infra

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
)

func testMasterKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
}

func TestNewLocalCipher_InvalidKey(t *testing.T) {
	if _, err := NewLocalCipher(""); err == nil {
		t.Error("expected error for empty master key")
	}
	if _, err := NewLocalCipher("not-base64!!"); err == nil {
		t.Error("expected error for non-base64 master key")
	}
	// 長さが32バイトではない鍵
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	if _, err := NewLocalCipher(short); err == nil {
		t.Error("expected error for short master key")
	}
}

func TestLocalCipher_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalCipher(testMasterKey())
	if err != nil {
		t.Fatalf("NewLocalCipher failed: %v", err)
	}

	ciphertext, err := c.Encrypt(ctx, []byte("p@ssw0rd"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(ciphertext, []byte("p@ssw0rd")) {
		t.Error("ciphertext equals plaintext")
	}

	plaintext, err := c.Decrypt(ctx, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(plaintext) != "p@ssw0rd" {
		t.Errorf("want original plaintext, got %q", plaintext)
	}
}

func TestLocalCipher_Decrypt_Tampered(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalCipher(testMasterKey())
	if err != nil {
		t.Fatalf("NewLocalCipher failed: %v", err)
	}

	ciphertext, err := c.Encrypt(ctx, []byte("p@ssw0rd"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// 末尾のバイトを改ざん
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := c.Decrypt(ctx, ciphertext); err == nil {
		t.Error("expected error for tampered ciphertext")
	}

	// 短すぎる暗号文
	if _, err := c.Decrypt(ctx, []byte{0x01}); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}
