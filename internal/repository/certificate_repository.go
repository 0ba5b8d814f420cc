package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"keys-depot-service/internal/domain"
)

// CertificateModel はgorm用のモデル定義。
type CertificateModel struct {
	ID              string    `gorm:"type:char(36);primaryKey"`
	CertificateIV   string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_certificate_iv"`
	RegistrationID  string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_registration_id"`
	Owner           string    `gorm:"type:varchar(255);not null"`
	Email           string    `gorm:"type:varchar(255);not null"`
	LicenseeAddress string    `gorm:"type:varchar(255);not null;default:''"`
	LicensedDate    time.Time `gorm:"type:datetime(6);not null;autoCreateTime"`
	Status          string    `gorm:"type:enum('active','expired','suspended');not null;default:'active'"`
}

// TableName はテーブル名を返す。
func (CertificateModel) TableName() string {
	return "certificates"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *CertificateModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// toDomain はモデルをドメインエンティティに変換する。
func (m *CertificateModel) toDomain() *domain.Certificate {
	return &domain.Certificate{
		ID:              m.ID,
		CertificateIV:   m.CertificateIV,
		RegistrationID:  m.RegistrationID,
		Owner:           m.Owner,
		Email:           m.Email,
		LicenseeAddress: m.LicenseeAddress,
		LicensedDate:    m.LicensedDate,
		Status:          domain.CertificateStatus(m.Status),
	}
}

// CertificateRepository は証明書のデータアクセスを提供する。
// サービス本体からは読み取りのみ。登録はCLIの管理コマンドからのみ行う。
type CertificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository は新しいCertificateRepositoryを生成する。
func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// FindByIV は証明書IVトークンに対応する証明書を取得する。存在しない場合はnilを返す。
func (r *CertificateRepository) FindByIV(ctx context.Context, certificateIV string) (*domain.Certificate, error) {
	var model CertificateModel
	err := r.db.WithContext(ctx).
		Where("certificate_iv = ?", certificateIV).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find certificate",
			"operation", "find_by_iv",
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// Create は新しい証明書を保存する。
// 証明書IVまたは登録IDが重複する場合はErrCertificateAlreadyExistsを返す。
func (r *CertificateRepository) Create(ctx context.Context, cert *domain.Certificate) error {
	model := &CertificateModel{
		ID:              cert.ID,
		CertificateIV:   cert.CertificateIV,
		RegistrationID:  cert.RegistrationID,
		Owner:           cert.Owner,
		Email:           cert.Email,
		LicenseeAddress: cert.LicenseeAddress,
		Status:          string(cert.Status),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrCertificateAlreadyExists
		}
		slog.ErrorContext(ctx, "failed to create certificate",
			"operation", "create",
			"registration_id", cert.RegistrationID,
			"error", err,
		)
		return err
	}
	cert.ID = model.ID
	cert.LicensedDate = model.LicensedDate
	return nil
}
