// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"errors"
	"fmt"

	"keys-depot-service/internal/domain"
)

// CertificateRepository は証明書データアクセスのインターフェース。
type CertificateRepository interface {
	FindByIV(ctx context.Context, certificateIV string) (*domain.Certificate, error)
}

// KeyRepository は鍵データアクセスのインターフェース。
type KeyRepository interface {
	Create(ctx context.Context, key *domain.DepotKey) error
	FindByName(ctx context.Context, certificateID, keyName string) (*domain.DepotKey, error)
	FindAllByCertificateID(ctx context.Context, certificateID string) ([]*domain.DepotKey, error)
	Replace(ctx context.Context, key *domain.DepotKey) error
	RemoveByName(ctx context.Context, certificateID, keyName string) error
}

// CryptoEngine は保護値の生成・復元・照合のインターフェース。
type CryptoEngine interface {
	Protect(plaintext, password string, algorithm domain.CryptoAlgorithm) (string, error)
	Reveal(protected, password string, algorithm domain.CryptoAlgorithm) (string, error)
	Matches(candidate, protected, password string, algorithm domain.CryptoAlgorithm) (bool, error)
}

// KeyCipher は保存するパスワードのラップ・アンラップのインターフェース。
type KeyCipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// VaultService は鍵保管に関するビジネスロジックを提供する。
type VaultService struct {
	certs  CertificateRepository
	keys   KeyRepository
	engine CryptoEngine
	cipher KeyCipher
}

// NewVaultService は新しいVaultServiceを生成する。
func NewVaultService(certs CertificateRepository, keys KeyRepository, engine CryptoEngine, cipher KeyCipher) *VaultService {
	return &VaultService{
		certs:  certs,
		keys:   keys,
		engine: engine,
		cipher: cipher,
	}
}

// resolveCertificate は証明書IVトークンから証明書を解決する。ライセンス状態は検査しない。
func (s *VaultService) resolveCertificate(ctx context.Context, certificateIV string) (*domain.Certificate, error) {
	if err := domain.ValidateCertificateIV(certificateIV); err != nil {
		return nil, err
	}
	cert, err := s.certs.FindByIV(ctx, certificateIV)
	if err != nil {
		return nil, fmt.Errorf("finding certificate: %w", err)
	}
	if cert == nil {
		return nil, domain.ErrCertificateNotFound
	}
	return cert, nil
}

// resolveActiveCertificate は証明書を解決し、ライセンスが有効であることを要求する。
func (s *VaultService) resolveActiveCertificate(ctx context.Context, certificateIV string) (*domain.Certificate, error) {
	cert, err := s.resolveCertificate(ctx, certificateIV)
	if err != nil {
		return nil, err
	}
	if !cert.Active() {
		return nil, domain.ErrLicenseNotActive
	}
	return cert, nil
}

// GetCertificate は登録アカウントの証明書情報を取得する。
// 診断用途のため、ライセンスが有効でなくても参照できる。
func (s *VaultService) GetCertificate(ctx context.Context, certificateIV string) (*domain.Certificate, error) {
	return s.resolveCertificate(ctx, certificateIV)
}

// GetKeys は登録アカウントの全鍵を鍵名昇順で取得する。鍵が無い場合は空のスライスを返す。
func (s *VaultService) GetKeys(ctx context.Context, certificateIV string) ([]*domain.RevealedKey, error) {
	cert, err := s.resolveActiveCertificate(ctx, certificateIV)
	if err != nil {
		return nil, err
	}

	keys, err := s.keys.FindAllByCertificateID(ctx, cert.ID)
	if err != nil {
		return nil, fmt.Errorf("finding keys: %w", err)
	}

	revealed := make([]*domain.RevealedKey, len(keys))
	for i, key := range keys {
		revealed[i], err = s.revealKey(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	return revealed, nil
}

// GetKey は指定された名前の鍵を取得する。
// 可逆アルゴリズムの場合は値を平文に復元して返し、不可逆の場合は保存されたダイジェストを返す。
func (s *VaultService) GetKey(ctx context.Context, certificateIV, keyName string) (*domain.RevealedKey, error) {
	cert, err := s.resolveActiveCertificate(ctx, certificateIV)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.FindByName(ctx, cert.ID, keyName)
	if err != nil {
		return nil, fmt.Errorf("finding key: %w", err)
	}
	if key == nil {
		return nil, domain.ErrKeyNotFound
	}

	return s.revealKey(ctx, key)
}

// AddKey は新しい鍵を保管する。
// 検証はストレージ・暗号処理より先に全て行い、失敗時に部分的な状態を残さない。
func (s *VaultService) AddKey(ctx context.Context, certificateIV, keyName, value, description, password string, algorithm domain.CryptoAlgorithm) (*domain.DepotKey, error) {
	cert, err := s.resolveActiveCertificate(ctx, certificateIV)
	if err != nil {
		return nil, err
	}
	if err := validateKeyInput(keyName, value, description, password, algorithm); err != nil {
		return nil, err
	}

	protected, err := s.engine.Protect(value, password, algorithm)
	if err != nil {
		return nil, err
	}

	wrappedPassword, err := s.cipher.Encrypt(ctx, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("wrapping password: %w", err)
	}

	key := &domain.DepotKey{
		CertificateID:  cert.ID,
		KeyName:        keyName,
		Description:    description,
		ProtectedValue: protected,
		CryptoPassword: wrappedPassword,
		Algorithm:      algorithm,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		if errors.Is(err, domain.ErrKeyAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("creating key: %w", err)
	}
	return key, nil
}

// UpdateKey は既存の鍵を新しい入力で全置換する。アルゴリズムの変更も許可する。
// created_atは維持され、updated_atのみ進む。
func (s *VaultService) UpdateKey(ctx context.Context, certificateIV, keyName, value, description, password string, algorithm domain.CryptoAlgorithm) (*domain.DepotKey, error) {
	cert, err := s.resolveActiveCertificate(ctx, certificateIV)
	if err != nil {
		return nil, err
	}
	if err := validateKeyInput(keyName, value, description, password, algorithm); err != nil {
		return nil, err
	}

	existing, err := s.keys.FindByName(ctx, cert.ID, keyName)
	if err != nil {
		return nil, fmt.Errorf("finding key: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrKeyNotFound
	}

	protected, err := s.engine.Protect(value, password, algorithm)
	if err != nil {
		return nil, err
	}

	wrappedPassword, err := s.cipher.Encrypt(ctx, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("wrapping password: %w", err)
	}

	existing.Description = description
	existing.ProtectedValue = protected
	existing.CryptoPassword = wrappedPassword
	existing.Algorithm = algorithm
	if err := s.keys.Replace(ctx, existing); err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("replacing key: %w", err)
	}
	return existing, nil
}

// DropKey は指定された名前の鍵を完全に削除し、削除した鍵名を返す。
// 鍵が存在しない場合は空の成功ではなくErrKeyNotFoundを返す。
func (s *VaultService) DropKey(ctx context.Context, certificateIV, keyName string) (string, error) {
	cert, err := s.resolveActiveCertificate(ctx, certificateIV)
	if err != nil {
		return "", err
	}

	if err := s.keys.RemoveByName(ctx, cert.ID, keyName); err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return "", err
		}
		return "", fmt.Errorf("removing key: %w", err)
	}
	return keyName, nil
}

// CheckKey は候補の値が保管された鍵と一致するかを判定する。平文は返さない。
func (s *VaultService) CheckKey(ctx context.Context, certificateIV, keyName, candidate string) (bool, error) {
	cert, err := s.resolveActiveCertificate(ctx, certificateIV)
	if err != nil {
		return false, err
	}

	key, err := s.keys.FindByName(ctx, cert.ID, keyName)
	if err != nil {
		return false, fmt.Errorf("finding key: %w", err)
	}
	if key == nil {
		return false, domain.ErrKeyNotFound
	}

	password, err := s.cipher.Decrypt(ctx, key.CryptoPassword)
	if err != nil {
		return false, fmt.Errorf("unwrapping password: %w", err)
	}

	return s.engine.Matches(candidate, key.ProtectedValue, string(password), key.Algorithm)
}

// revealKey は保存された鍵を呼び出し元へ返す形に変換する。
func (s *VaultService) revealKey(ctx context.Context, key *domain.DepotKey) (*domain.RevealedKey, error) {
	password, err := s.cipher.Decrypt(ctx, key.CryptoPassword)
	if err != nil {
		return nil, fmt.Errorf("unwrapping password: %w", err)
	}

	value := key.ProtectedValue
	if key.Algorithm.Reversible() {
		value, err = s.engine.Reveal(key.ProtectedValue, string(password), key.Algorithm)
		if err != nil {
			return nil, err
		}
	}

	return &domain.RevealedKey{
		KeyName:        key.KeyName,
		Value:          value,
		Description:    key.Description,
		CryptoPassword: string(password),
		Algorithm:      key.Algorithm,
		CreatedAt:      key.CreatedAt,
		UpdatedAt:      key.UpdatedAt,
	}, nil
}

// validateKeyInput はAdd/Updateの入力を一括で検証する。
func validateKeyInput(keyName, value, description, password string, algorithm domain.CryptoAlgorithm) error {
	if err := domain.ValidateKeyName(keyName); err != nil {
		return err
	}
	if err := domain.ValidateValue(value); err != nil {
		return err
	}
	if err := domain.ValidateDescription(description); err != nil {
		return err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return err
	}
	if !algorithm.Valid() {
		return domain.ErrInvalidAlgorithm
	}
	return nil
}
