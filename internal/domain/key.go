// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import (
	"regexp"
	"time"
)

// CryptoAlgorithm は鍵の保護に使う暗号アルゴリズムを表す。
type CryptoAlgorithm string

const (
	// AlgorithmAES256 はAES-256による可逆な共通鍵暗号を表す。
	AlgorithmAES256 CryptoAlgorithm = "Symmetric Block Cipher - AES-256"
	// AlgorithmTripleDES は3キーTriple DESによる可逆な共通鍵暗号を表す。
	AlgorithmTripleDES CryptoAlgorithm = "Three-Key Triple DES"
	// AlgorithmSHA256 はSHA-256による不可逆なハッシュを表す。
	AlgorithmSHA256 CryptoAlgorithm = "Hash Functions - SHA-256"
)

// CryptoAlgorithms は選択可能なアルゴリズム名の一覧を返す。
func CryptoAlgorithms() []string {
	return []string{
		string(AlgorithmAES256),
		string(AlgorithmTripleDES),
		string(AlgorithmSHA256),
	}
}

// Reversible は保護値から平文を復元できるアルゴリズムかどうかを返す。
func (a CryptoAlgorithm) Reversible() bool {
	return a != AlgorithmSHA256
}

// Valid はアルゴリズム名が定義済みの3種に含まれるかを返す。
func (a CryptoAlgorithm) Valid() bool {
	switch a {
	case AlgorithmAES256, AlgorithmTripleDES, AlgorithmSHA256:
		return true
	}
	return false
}

// 鍵の各フィールドの長さ上限。
const (
	MaxKeyNameLength     = 128
	MaxDescriptionLength = 512
	MaxValueLength       = 1024
	MaxPasswordLength    = 128
)

// 鍵名は英字またはアンダースコアで始まり、英数字とアンダースコアのみ使用できる。
var keyNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DepotKey は保管された秘密鍵エンティティを表す。
// ProtectedValueはCryptoAlgorithmで変換済みの値のみ保持し、平文は保存しない。
// CryptoPasswordはリポジトリ層でラップ（暗号化）された形でのみ永続化される。
type DepotKey struct {
	ID             string
	CertificateID  string
	KeyName        string
	Description    string
	ProtectedValue string
	CryptoPassword []byte
	Algorithm      CryptoAlgorithm
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RevealedKey は呼び出し元へ返す鍵を表す。
// 可逆アルゴリズムの場合Valueは復号済みの平文、不可逆の場合は保存されたダイジェスト。
type RevealedKey struct {
	KeyName        string
	Value          string
	Description    string
	CryptoPassword string
	Algorithm      CryptoAlgorithm
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateKeyName は鍵名の形式と長さを検証する。
func ValidateKeyName(name string) error {
	if name == "" || len(name) > MaxKeyNameLength {
		return ErrInvalidKeyName
	}
	if !keyNameRegex.MatchString(name) {
		return ErrInvalidKeyName
	}
	return nil
}

// ValidateDescription は説明の長さを検証する。説明は省略可能。
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	return nil
}

// ValidateValue は鍵の値の長さを検証する。
func ValidateValue(value string) error {
	if value == "" || len(value) > MaxValueLength {
		return ErrInvalidKeyValue
	}
	return nil
}

// ValidatePassword は暗号化パスワードの長さを検証する。
func ValidatePassword(password string) error {
	if password == "" || len(password) > MaxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
