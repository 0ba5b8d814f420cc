package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"keys-depot-service/internal/crypto"
	"keys-depot-service/internal/domain"
)

// mockCertificateRepository はテスト用のモックリポジトリ。
type mockCertificateRepository struct {
	certs   map[string]*domain.Certificate
	findErr error
}

func (m *mockCertificateRepository) FindByIV(ctx context.Context, certificateIV string) (*domain.Certificate, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.certs[certificateIV], nil
}

// mockKeyRepository はインメモリのモックリポジトリ。
type mockKeyRepository struct {
	keys      map[string]*domain.DepotKey // certificateID + "/" + keyName
	createErr error
	findErr   error
}

func newMockKeyRepository() *mockKeyRepository {
	return &mockKeyRepository{keys: make(map[string]*domain.DepotKey)}
}

func (m *mockKeyRepository) Create(ctx context.Context, key *domain.DepotKey) error {
	if m.createErr != nil {
		return m.createErr
	}
	id := key.CertificateID + "/" + key.KeyName
	if _, exists := m.keys[id]; exists {
		return domain.ErrKeyAlreadyExists
	}
	key.ID = id
	key.CreatedAt = time.Now()
	key.UpdatedAt = key.CreatedAt
	stored := *key
	m.keys[id] = &stored
	return nil
}

func (m *mockKeyRepository) FindByName(ctx context.Context, certificateID, keyName string) (*domain.DepotKey, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	key, exists := m.keys[certificateID+"/"+keyName]
	if !exists {
		return nil, nil
	}
	found := *key
	return &found, nil
}

func (m *mockKeyRepository) FindAllByCertificateID(ctx context.Context, certificateID string) ([]*domain.DepotKey, error) {
	var keys []*domain.DepotKey
	for _, key := range m.keys {
		if key.CertificateID == certificateID {
			found := *key
			keys = append(keys, &found)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].KeyName < keys[j].KeyName
	})
	return keys, nil
}

func (m *mockKeyRepository) Replace(ctx context.Context, key *domain.DepotKey) error {
	stored, exists := m.keys[key.ID]
	if !exists {
		return domain.ErrKeyNotFound
	}
	stored.Description = key.Description
	stored.ProtectedValue = key.ProtectedValue
	stored.CryptoPassword = key.CryptoPassword
	stored.Algorithm = key.Algorithm
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockKeyRepository) RemoveByName(ctx context.Context, certificateID, keyName string) error {
	id := certificateID + "/" + keyName
	if _, exists := m.keys[id]; !exists {
		return domain.ErrKeyNotFound
	}
	delete(m.keys, id)
	return nil
}

// mockKeyCipher はテスト用のモックKeyCipher。プレフィックス付与で可逆にラップする。
type mockKeyCipher struct {
	encryptErr error
	decryptErr error
}

func (m *mockKeyCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if m.encryptErr != nil {
		return nil, m.encryptErr
	}
	return append([]byte("wrapped:"), plaintext...), nil
}

func (m *mockKeyCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if m.decryptErr != nil {
		return nil, m.decryptErr
	}
	return ciphertext[len("wrapped:"):], nil
}

const (
	testActiveIV    = "activeIV001"
	testExpiredIV   = "expiredIV001"
	testSuspendedIV = "suspendedIV001"
)

func newTestService() (*VaultService, *mockKeyRepository) {
	certs := &mockCertificateRepository{
		certs: map[string]*domain.Certificate{
			testActiveIV: {
				ID:             "cert-active",
				CertificateIV:  testActiveIV,
				RegistrationID: "reg-1",
				Owner:          "Alice",
				Email:          "alice@example.com",
				Status:         domain.CertificateStatusActive,
			},
			testExpiredIV: {
				ID:             "cert-expired",
				CertificateIV:  testExpiredIV,
				RegistrationID: "reg-2",
				Owner:          "Bob",
				Email:          "bob@example.com",
				Status:         domain.CertificateStatusExpired,
			},
			testSuspendedIV: {
				ID:             "cert-suspended",
				CertificateIV:  testSuspendedIV,
				RegistrationID: "reg-3",
				Owner:          "Carol",
				Email:          "carol@example.com",
				Status:         domain.CertificateStatusSuspended,
			},
		},
	}
	keys := newMockKeyRepository()
	svc := NewVaultService(certs, keys, crypto.NewEngine(), &mockKeyCipher{})
	return svc, keys
}

func TestVaultService_GetCertificate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cert, err := svc.GetCertificate(ctx, testActiveIV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cert.Owner != "Alice" {
		t.Errorf("want owner Alice, got %s", cert.Owner)
	}

	// ライセンスが有効でなくても証明書情報は参照できる
	cert, err = svc.GetCertificate(ctx, testExpiredIV)
	if err != nil {
		t.Fatalf("unexpected error for expired certificate: %v", err)
	}
	if cert.Status != domain.CertificateStatusExpired {
		t.Errorf("want status expired, got %s", cert.Status)
	}

	// 未登録のトークン
	if _, err := svc.GetCertificate(ctx, "unknownIV"); !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Errorf("want ErrCertificateNotFound, got %v", err)
	}

	// 形式が不正なトークン
	if _, err := svc.GetCertificate(ctx, "bad token!"); !errors.Is(err, domain.ErrInvalidCertificateIV) {
		t.Errorf("want ErrInvalidCertificateIV, got %v", err)
	}
	if _, err := svc.GetCertificate(ctx, ""); !errors.Is(err, domain.ErrInvalidCertificateIV) {
		t.Errorf("want ErrInvalidCertificateIV for empty token, got %v", err)
	}
}

func TestVaultService_LicenseGating(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// 証明書参照以外の操作は有効なライセンスを要求する
	for _, iv := range []string{testExpiredIV, testSuspendedIV} {
		if _, err := svc.GetKeys(ctx, iv); !errors.Is(err, domain.ErrLicenseNotActive) {
			t.Errorf("GetKeys(%s): want ErrLicenseNotActive, got %v", iv, err)
		}
		if _, err := svc.GetKey(ctx, iv, "api_key"); !errors.Is(err, domain.ErrLicenseNotActive) {
			t.Errorf("GetKey(%s): want ErrLicenseNotActive, got %v", iv, err)
		}
		if _, err := svc.AddKey(ctx, iv, "api_key", "value", "", "pass", domain.AlgorithmAES256); !errors.Is(err, domain.ErrLicenseNotActive) {
			t.Errorf("AddKey(%s): want ErrLicenseNotActive, got %v", iv, err)
		}
		if _, err := svc.DropKey(ctx, iv, "api_key"); !errors.Is(err, domain.ErrLicenseNotActive) {
			t.Errorf("DropKey(%s): want ErrLicenseNotActive, got %v", iv, err)
		}
		if _, err := svc.CheckKey(ctx, iv, "api_key", "value"); !errors.Is(err, domain.ErrLicenseNotActive) {
			t.Errorf("CheckKey(%s): want ErrLicenseNotActive, got %v", iv, err)
		}
	}
}

func TestVaultService_AddKey_And_GetKey(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	key, err := svc.AddKey(ctx, testActiveIV, "api_key", "my secret value", "primary API key", "p@ssw0rd", domain.AlgorithmAES256)
	if err != nil {
		t.Fatalf("AddKey failed: %v", err)
	}
	if key.KeyName != "api_key" {
		t.Errorf("want key_name api_key, got %s", key.KeyName)
	}

	// 保護値は平文と異なり、パスワードはラップされて保存される
	stored := repo.keys["cert-active/api_key"]
	if stored == nil {
		t.Fatal("expected stored key, got nil")
	}
	if stored.ProtectedValue == "my secret value" {
		t.Error("stored value equals plaintext")
	}
	if string(stored.CryptoPassword) != "wrapped:p@ssw0rd" {
		t.Errorf("expected wrapped password, got %q", stored.CryptoPassword)
	}

	// 取得時は平文に復元され、パスワードも返る
	revealed, err := svc.GetKey(ctx, testActiveIV, "api_key")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if revealed.Value != "my secret value" {
		t.Errorf("want original value, got %q", revealed.Value)
	}
	if revealed.CryptoPassword != "p@ssw0rd" {
		t.Errorf("want original password, got %q", revealed.CryptoPassword)
	}
	if revealed.Algorithm != domain.AlgorithmAES256 {
		t.Errorf("want algorithm %s, got %s", domain.AlgorithmAES256, revealed.Algorithm)
	}
}

func TestVaultService_AddKey_Duplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.AddKey(ctx, testActiveIV, "api_key", "value", "", "pass", domain.AlgorithmAES256); err != nil {
		t.Fatalf("AddKey failed: %v", err)
	}
	if _, err := svc.AddKey(ctx, testActiveIV, "api_key", "other", "", "pass", domain.AlgorithmAES256); !errors.Is(err, domain.ErrKeyAlreadyExists) {
		t.Errorf("want ErrKeyAlreadyExists, got %v", err)
	}
}

func TestVaultService_AddKey_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name      string
		keyName   string
		value     string
		password  string
		algorithm domain.CryptoAlgorithm
		wantErr   error
	}{
		{"数字で始まる鍵名", "1bad", "value", "pass", domain.AlgorithmAES256, domain.ErrInvalidKeyName},
		{"記号を含む鍵名", "bad-name", "value", "pass", domain.AlgorithmAES256, domain.ErrInvalidKeyName},
		{"空の鍵名", "", "value", "pass", domain.AlgorithmAES256, domain.ErrInvalidKeyName},
		{"空の値", "api_key", "", "pass", domain.AlgorithmAES256, domain.ErrInvalidKeyValue},
		{"空のパスワード", "api_key", "value", "", domain.AlgorithmAES256, domain.ErrInvalidPassword},
		{"未知のアルゴリズム", "api_key", "value", "pass", domain.CryptoAlgorithm("ROT13"), domain.ErrInvalidAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddKey(ctx, testActiveIV, tt.keyName, tt.value, "", tt.password, tt.algorithm)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVaultService_GetKey_NotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetKey(ctx, testActiveIV, "missing_key"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("want ErrKeyNotFound, got %v", err)
	}
}

func TestVaultService_GetKey_HashedValue(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.AddKey(ctx, testActiveIV, "hashed_key", "my secret value", "", "p@ssw0rd", domain.AlgorithmSHA256); err != nil {
		t.Fatalf("AddKey failed: %v", err)
	}

	// 不可逆アルゴリズムは保存されたダイジェストをそのまま返す
	revealed, err := svc.GetKey(ctx, testActiveIV, "hashed_key")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	stored := repo.keys["cert-active/hashed_key"]
	if revealed.Value != stored.ProtectedValue {
		t.Errorf("want stored digest, got %q", revealed.Value)
	}
	if revealed.Value == "my secret value" {
		t.Error("hashed value equals plaintext")
	}
}

func TestVaultService_GetKeys(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// 鍵が無い場合は空のスライス
	keys, err := svc.GetKeys(ctx, testActiveIV)
	if err != nil {
		t.Fatalf("GetKeys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("want 0 keys, got %d", len(keys))
	}

	for _, name := range []string{"gamma_key", "alpha_key", "beta_key"} {
		if _, err := svc.AddKey(ctx, testActiveIV, name, "value of "+name, "", "pass", domain.AlgorithmAES256); err != nil {
			t.Fatalf("AddKey failed: %v", err)
		}
	}

	keys, err = svc.GetKeys(ctx, testActiveIV)
	if err != nil {
		t.Fatalf("GetKeys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("want 3 keys, got %d", len(keys))
	}

	// 鍵名昇順で、値は復元済み
	expectedNames := []string{"alpha_key", "beta_key", "gamma_key"}
	for i, key := range keys {
		if key.KeyName != expectedNames[i] {
			t.Errorf("keys[%d]: want %s, got %s", i, expectedNames[i], key.KeyName)
		}
		if key.Value != "value of "+expectedNames[i] {
			t.Errorf("keys[%d]: want revealed value, got %q", i, key.Value)
		}
	}
}

func TestVaultService_UpdateKey(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	// 存在しない鍵の更新はErrKeyNotFound
	if _, err := svc.UpdateKey(ctx, testActiveIV, "api_key", "value", "", "pass", domain.AlgorithmAES256); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("want ErrKeyNotFound, got %v", err)
	}

	if _, err := svc.AddKey(ctx, testActiveIV, "api_key", "old value", "", "old-pass", domain.AlgorithmAES256); err != nil {
		t.Fatalf("AddKey failed: %v", err)
	}
	createdAt := repo.keys["cert-active/api_key"].CreatedAt

	// アルゴリズムの変更を含む全置換
	if _, err := svc.UpdateKey(ctx, testActiveIV, "api_key", "new value", "rotated", "new-pass", domain.AlgorithmTripleDES); err != nil {
		t.Fatalf("UpdateKey failed: %v", err)
	}

	revealed, err := svc.GetKey(ctx, testActiveIV, "api_key")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if revealed.Value != "new value" {
		t.Errorf("want new value, got %q", revealed.Value)
	}
	if revealed.CryptoPassword != "new-pass" {
		t.Errorf("want new password, got %q", revealed.CryptoPassword)
	}
	if revealed.Algorithm != domain.AlgorithmTripleDES {
		t.Errorf("want algorithm %s, got %s", domain.AlgorithmTripleDES, revealed.Algorithm)
	}

	// created_atは維持される
	if !repo.keys["cert-active/api_key"].CreatedAt.Equal(createdAt) {
		t.Error("expected created_at unchanged after update")
	}
}

func TestVaultService_DropKey(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.AddKey(ctx, testActiveIV, "api_key", "value", "", "pass", domain.AlgorithmAES256); err != nil {
		t.Fatalf("AddKey failed: %v", err)
	}

	dropped, err := svc.DropKey(ctx, testActiveIV, "api_key")
	if err != nil {
		t.Fatalf("DropKey failed: %v", err)
	}
	if dropped != "api_key" {
		t.Errorf("want dropped key name api_key, got %s", dropped)
	}

	// 削除後の取得と二重削除はErrKeyNotFound
	if _, err := svc.GetKey(ctx, testActiveIV, "api_key"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("want ErrKeyNotFound, got %v", err)
	}
	if _, err := svc.DropKey(ctx, testActiveIV, "api_key"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("want ErrKeyNotFound, got %v", err)
	}
}

func TestVaultService_CheckKey(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, algorithm := range []domain.CryptoAlgorithm{
		domain.AlgorithmAES256,
		domain.AlgorithmTripleDES,
		domain.AlgorithmSHA256,
	} {
		keyName := "key_" + string(algorithm[0])
		if _, err := svc.AddKey(ctx, testActiveIV, keyName, "my secret value", "", "p@ssw0rd", algorithm); err != nil {
			t.Fatalf("%s: AddKey failed: %v", algorithm, err)
		}

		match, err := svc.CheckKey(ctx, testActiveIV, keyName, "my secret value")
		if err != nil {
			t.Fatalf("%s: CheckKey failed: %v", algorithm, err)
		}
		if !match {
			t.Errorf("%s: want match=true, got false", algorithm)
		}

		match, err = svc.CheckKey(ctx, testActiveIV, keyName, "other value")
		if err != nil {
			t.Fatalf("%s: CheckKey failed: %v", algorithm, err)
		}
		if match {
			t.Errorf("%s: want match=false, got true", algorithm)
		}
	}

	// 存在しない鍵
	if _, err := svc.CheckKey(ctx, testActiveIV, "missing_key", "value"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("want ErrKeyNotFound, got %v", err)
	}
}
