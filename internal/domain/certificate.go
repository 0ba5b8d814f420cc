package domain

import (
	"regexp"
	"time"
)

// CertificateStatus はライセンスの状態を表す。
type CertificateStatus string

const (
	// CertificateStatusActive は有効なライセンスを表す。
	CertificateStatusActive CertificateStatus = "active"
	// CertificateStatusExpired は期限切れのライセンスを表す。
	CertificateStatusExpired CertificateStatus = "expired"
	// CertificateStatusSuspended は停止中のライセンスを表す。
	CertificateStatusSuspended CertificateStatus = "suspended"
)

// MaxCertificateIVLength は証明書IVトークンの長さ上限。
const MaxCertificateIVLength = 64

// 証明書IVトークンは英数字のみの不透明な文字列。
var certificateIVRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Certificate はテナントの登録情報とライセンス状態を表す。
// 登録は外部のアカウント管理で行われるため、サービス内では読み取り専用。
type Certificate struct {
	ID              string
	CertificateIV   string
	RegistrationID  string
	Owner           string
	Email           string
	LicenseeAddress string
	LicensedDate    time.Time
	Status          CertificateStatus
}

// Active はライセンスが有効かどうかを返す。
func (c *Certificate) Active() bool {
	return c.Status == CertificateStatusActive
}

// ValidateCertificateIV は証明書IVトークンの形式を検証する。
func ValidateCertificateIV(iv string) error {
	if iv == "" || len(iv) > MaxCertificateIVLength {
		return ErrInvalidCertificateIV
	}
	if !certificateIVRegex.MatchString(iv) {
		return ErrInvalidCertificateIV
	}
	return nil
}
