// Package crypto は鍵保護アルゴリズムの実装を提供する。
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"keys-depot-service/internal/domain"
)

const (
	// pbkdf2Iterations はパスワードからの鍵導出の反復回数。
	pbkdf2Iterations = 100000
	saltSize         = 16
	aesKeySize       = 32 // AES-256
	desKeySize       = 24 // 3キーTriple DES
	macKeySize       = 32 // HMAC-SHA256
	desIVSize        = des.BlockSize
	macSize          = sha256.Size
	digestSize       = sha256.Size
)

// Engine は保護値の生成・復元・照合を提供する。状態を持たず並行利用できる。
type Engine struct{}

// NewEngine は新しいEngineを生成する。
func NewEngine() *Engine {
	return &Engine{}
}

// deriveKey はPBKDF2-SHA256でパスワードから指定長の鍵を導出する。
func deriveKey(password string, salt []byte, length int) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, length, sha256.New)
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Protect は平文をアルゴリズムに応じた保護値（Base64エンコード済み）に変換する。
// 平文またはエンコード後の保護値が上限を超える場合はErrCryptoFailedを返す。
func (e *Engine) Protect(plaintext, password string, algorithm domain.CryptoAlgorithm) (string, error) {
	if len(plaintext) > domain.MaxValueLength {
		return "", fmt.Errorf("%w: plaintext exceeds %d characters", domain.ErrCryptoFailed, domain.MaxValueLength)
	}

	var (
		protected string
		err       error
	)
	switch algorithm {
	case domain.AlgorithmAES256:
		protected, err = e.protectAES(plaintext, password)
	case domain.AlgorithmTripleDES:
		protected, err = e.protectTripleDES(plaintext, password)
	case domain.AlgorithmSHA256:
		protected, err = e.protectSHA256(plaintext, password)
	default:
		return "", domain.ErrInvalidAlgorithm
	}
	if err != nil {
		return "", err
	}

	if len(protected) > domain.MaxValueLength {
		return "", fmt.Errorf("%w: protected value exceeds %d characters", domain.ErrCryptoFailed, domain.MaxValueLength)
	}
	return protected, nil
}

// Reveal は可逆アルゴリズムの保護値を平文に復元する。
// 不可逆アルゴリズムの場合はErrRevealNotSupportedを返す。
func (e *Engine) Reveal(protected, password string, algorithm domain.CryptoAlgorithm) (string, error) {
	switch algorithm {
	case domain.AlgorithmAES256:
		return e.revealAES(protected, password)
	case domain.AlgorithmTripleDES:
		return e.revealTripleDES(protected, password)
	case domain.AlgorithmSHA256:
		return "", domain.ErrRevealNotSupported
	default:
		return "", domain.ErrInvalidAlgorithm
	}
}

// Matches は候補の平文が保護値と一致するかを判定する。
// 可逆アルゴリズムは復元して比較し、不可逆アルゴリズムはダイジェストを再導出して比較する。
func (e *Engine) Matches(candidate, protected, password string, algorithm domain.CryptoAlgorithm) (bool, error) {
	if algorithm == domain.AlgorithmSHA256 {
		return e.matchesSHA256(candidate, protected, password)
	}

	plaintext, err := e.Reveal(protected, password, algorithm)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(candidate)) == 1, nil
}

// protectAES はAES-256-GCMで暗号化する。出力は salt | nonce | ciphertext の連結。
func (e *Engine) protectAES(plaintext, password string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(deriveKey(password, salt, aesKeySize))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCryptoFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (e *Engine) revealAES(protected, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(protected)
	if err != nil {
		return "", fmt.Errorf("%w: malformed protected value", domain.ErrCryptoFailed)
	}
	if len(raw) < saltSize {
		return "", fmt.Errorf("%w: protected value too short", domain.ErrCryptoFailed)
	}
	salt, rest := raw[:saltSize], raw[saltSize:]

	gcm, err := newGCM(deriveKey(password, salt, aesKeySize))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCryptoFailed, err)
	}
	if len(rest) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: protected value too short", domain.ErrCryptoFailed)
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// パスワード不一致と暗号文破損はGCMの認証エラーとして区別なく検出される
		return "", fmt.Errorf("%w: authentication failed", domain.ErrCryptoFailed)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// protectTripleDES は3キーTriple DES（CTRモード）で暗号化する。
// 3DESには認証付きモードがないため、encrypt-then-MACでHMAC-SHA256タグを付与する。
// 出力は salt | iv | ciphertext | mac の連結。
func (e *Engine) protectTripleDES(plaintext, password string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	material := deriveKey(password, salt, desKeySize+macKeySize)
	encKey, macKey := material[:desKeySize], material[desKeySize:]

	block, err := des.NewTripleDESCipher(encKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCryptoFailed, err)
	}

	iv := make([]byte, desIVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, []byte(plaintext))

	mac := hmac.New(sha256.New, macKey)
	mac.Write(salt)
	mac.Write(iv)
	mac.Write(ciphertext)

	out := make([]byte, 0, saltSize+desIVSize+len(ciphertext)+macSize)
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = mac.Sum(out)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (e *Engine) revealTripleDES(protected, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(protected)
	if err != nil {
		return "", fmt.Errorf("%w: malformed protected value", domain.ErrCryptoFailed)
	}
	if len(raw) < saltSize+desIVSize+macSize {
		return "", fmt.Errorf("%w: protected value too short", domain.ErrCryptoFailed)
	}
	salt := raw[:saltSize]
	iv := raw[saltSize : saltSize+desIVSize]
	ciphertext := raw[saltSize+desIVSize : len(raw)-macSize]
	tag := raw[len(raw)-macSize:]

	material := deriveKey(password, salt, desKeySize+macKeySize)
	encKey, macKey := material[:desKeySize], material[desKeySize:]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(salt)
	mac.Write(iv)
	mac.Write(ciphertext)
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrCryptoFailed)
	}

	block, err := des.NewTripleDESCipher(encKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCryptoFailed, err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
	return string(plaintext), nil
}

// protectSHA256 はソルト付きダイジェストを生成する。出力は salt | digest の連結。
// パスワードをダイジェストに混ぜることで、同じ平文でも鍵ごとに異なる値になる。
func (e *Engine) protectSHA256(plaintext, password string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	digest := digestSHA256(salt, password, plaintext)

	out := make([]byte, 0, saltSize+digestSize)
	out = append(out, salt...)
	out = append(out, digest...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (e *Engine) matchesSHA256(candidate, protected, password string) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(protected)
	if err != nil {
		return false, fmt.Errorf("%w: malformed protected value", domain.ErrCryptoFailed)
	}
	if len(raw) != saltSize+digestSize {
		return false, fmt.Errorf("%w: protected value has unexpected length", domain.ErrCryptoFailed)
	}
	salt, stored := raw[:saltSize], raw[saltSize:]

	derived := digestSHA256(salt, password, candidate)
	return hmac.Equal(stored, derived), nil
}

func digestSHA256(salt []byte, password, plaintext string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	h.Write([]byte(plaintext))
	return h.Sum(nil)
}
