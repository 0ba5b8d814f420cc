// Package repository はデータアクセス層の実装を提供する。
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

// DepotKeyModel はgorm用のモデル定義。
type DepotKeyModel struct {
	ID              string    `gorm:"type:char(36);primaryKey"`
	CertificateID   string    `gorm:"type:char(36);not null;uniqueIndex:uk_certificate_key_name;index:idx_certificate_id"`
	KeyName         string    `gorm:"type:varchar(128);not null;uniqueIndex:uk_certificate_key_name"`
	Description     string    `gorm:"type:varchar(512);not null;default:''"`
	ProtectedValue  string    `gorm:"type:varchar(1024);not null"`
	CryptoPassword  []byte    `gorm:"type:blob;not null"`
	CryptoAlgorithm string    `gorm:"type:varchar(64);not null"`
	CreatedAt       time.Time `gorm:"type:datetime(6);not null;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"type:datetime(6);not null;autoUpdateTime"`
}

// TableName はテーブル名を返す。
func (DepotKeyModel) TableName() string {
	return "depot_keys"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *DepotKeyModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// toDomain はモデルをドメインエンティティに変換する。
func (m *DepotKeyModel) toDomain() *domain.DepotKey {
	return &domain.DepotKey{
		ID:             m.ID,
		CertificateID:  m.CertificateID,
		KeyName:        m.KeyName,
		Description:    m.Description,
		ProtectedValue: m.ProtectedValue,
		CryptoPassword: m.CryptoPassword,
		Algorithm:      domain.CryptoAlgorithm(m.CryptoAlgorithm),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// KeyRepository は鍵のデータアクセスを提供する。
type KeyRepository struct {
	db *gorm.DB
}

// NewKeyRepository は新しいKeyRepositoryを生成する。
func NewKeyRepository(db *gorm.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// Create は新しい鍵を保存する。
// (certificate_id, key_name)のユニーク制約により、同名の鍵が既に存在する場合は
// ErrKeyAlreadyExistsを返す。並行する同名Createも片方だけが成功する。
func (r *KeyRepository) Create(ctx context.Context, key *domain.DepotKey) error {
	model := &DepotKeyModel{
		ID:              key.ID,
		CertificateID:   key.CertificateID,
		KeyName:         key.KeyName,
		Description:     key.Description,
		ProtectedValue:  key.ProtectedValue,
		CryptoPassword:  key.CryptoPassword,
		CryptoAlgorithm: string(key.Algorithm),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrKeyAlreadyExists
		}
		slog.ErrorContext(ctx, "failed to create key",
			"operation", "create",
			"certificate_id", key.CertificateID,
			"key_name", key.KeyName,
			"error", err,
		)
		return err
	}
	// gormで設定された値をドメインエンティティに反映
	key.ID = model.ID
	key.CreatedAt = model.CreatedAt
	key.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByName は指定された証明書・鍵名の鍵を取得する。存在しない場合はnilを返す。
func (r *KeyRepository) FindByName(ctx context.Context, certificateID, keyName string) (*domain.DepotKey, error) {
	var model DepotKeyModel
	err := r.db.WithContext(ctx).
		Where("certificate_id = ? AND key_name = ?", certificateID, keyName).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find key",
			"operation", "find_by_name",
			"certificate_id", certificateID,
			"key_name", keyName,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindAllByCertificateID は指定された証明書の全鍵を鍵名昇順で取得する。
func (r *KeyRepository) FindAllByCertificateID(ctx context.Context, certificateID string) ([]*domain.DepotKey, error) {
	var models []DepotKeyModel
	err := r.db.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		Order("key_name ASC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find all keys by certificate_id",
			"operation", "find_all_by_certificate_id",
			"certificate_id", certificateID,
			"error", err,
		)
		return nil, err
	}

	keys := make([]*domain.DepotKey, len(models))
	for i, m := range models {
		keys[i] = m.toDomain()
	}
	return keys, nil
}

// Replace は既存の鍵の可変フィールドを単一のUPDATEで上書きする。
// created_atは変更せず、updated_atはgormが自動更新する。
// 対象が存在しない（並行Dropで消えた場合を含む）ときはErrKeyNotFoundを返す。
func (r *KeyRepository) Replace(ctx context.Context, key *domain.DepotKey) error {
	result := r.db.WithContext(ctx).
		Model(&DepotKeyModel{}).
		Where("id = ?", key.ID).
		Updates(map[string]interface{}{
			"description":      key.Description,
			"protected_value":  key.ProtectedValue,
			"crypto_password":  key.CryptoPassword,
			"crypto_algorithm": string(key.Algorithm),
		})
	if result.Error != nil {
		slog.ErrorContext(ctx, "failed to replace key",
			"operation", "replace",
			"certificate_id", key.CertificateID,
			"key_name", key.KeyName,
			"error", result.Error,
		)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

// RemoveByName は指定された証明書・鍵名の鍵を削除する。
// 対象が存在しない場合はErrKeyNotFoundを返す（空振りの削除は成功扱いにしない）。
func (r *KeyRepository) RemoveByName(ctx context.Context, certificateID, keyName string) error {
	result := r.db.WithContext(ctx).
		Where("certificate_id = ? AND key_name = ?", certificateID, keyName).
		Delete(&DepotKeyModel{})
	if result.Error != nil {
		slog.ErrorContext(ctx, "failed to remove key",
			"operation", "remove_by_name",
			"certificate_id", certificateID,
			"key_name", keyName,
			"error", result.Error,
		)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}
