package repository

import (
	"context"
	"errors"
	"testing"

	"keys-depot-service/internal/domain"

	"gorm.io/gorm"
)

// setupCertificateTestDB は証明書テーブル付きのテスト用DBを作成する。
func setupCertificateTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupTestDB(t)

	// certificatesテーブルを作成（SQLite用にENUM→TEXT変換）
	sql := `
		CREATE TABLE certificates (
			id TEXT PRIMARY KEY,
			certificate_iv TEXT NOT NULL,
			registration_id TEXT NOT NULL,
			owner TEXT NOT NULL,
			email TEXT NOT NULL,
			licensee_address TEXT NOT NULL DEFAULT '',
			licensed_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'active',
			UNIQUE(certificate_iv),
			UNIQUE(registration_id)
		);
	`
	if err := db.Exec(sql).Error; err != nil {
		t.Fatalf("failed to create certificates table: %v", err)
	}

	return db
}

func TestCertificateRepository_FindByIV(t *testing.T) {
	ctx := context.Background()
	db := setupCertificateTestDB(t)
	repo := NewCertificateRepository(db)

	// テストデータを挿入
	if err := db.Exec("INSERT INTO certificates (id, certificate_iv, registration_id, owner, email, status) VALUES (?, ?, ?, ?, ?, ?)",
		"cert-1", "a1b2c3d4", "reg-1", "Alice", "alice@example.com", "active").Error; err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}

	// 証明書が存在する場合
	cert, err := repo.FindByIV(ctx, "a1b2c3d4")
	if err != nil {
		t.Fatalf("FindByIV failed: %v", err)
	}
	if cert == nil {
		t.Fatal("expected certificate, got nil")
	}
	if cert.Owner != "Alice" {
		t.Errorf("expected owner=Alice, got %s", cert.Owner)
	}
	if cert.Status != domain.CertificateStatusActive {
		t.Errorf("expected status=active, got %s", cert.Status)
	}

	// 証明書が存在しない場合
	cert, err = repo.FindByIV(ctx, "unknown")
	if err != nil {
		t.Fatalf("FindByIV failed: %v", err)
	}
	if cert != nil {
		t.Errorf("expected nil, got %+v", cert)
	}
}

func TestCertificateRepository_Create(t *testing.T) {
	ctx := context.Background()
	db := setupCertificateTestDB(t)
	repo := NewCertificateRepository(db)

	cert := &domain.Certificate{
		CertificateIV:  "a1b2c3d4",
		RegistrationID: "reg-1",
		Owner:          "Alice",
		Email:          "alice@example.com",
		Status:         domain.CertificateStatusActive,
	}
	if err := repo.Create(ctx, cert); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// UUID自動生成を確認
	if cert.ID == "" {
		t.Error("expected ID to be generated, got empty")
	}

	// 証明書IVの重複はErrCertificateAlreadyExists
	dup := &domain.Certificate{
		CertificateIV:  "a1b2c3d4",
		RegistrationID: "reg-2",
		Owner:          "Bob",
		Email:          "bob@example.com",
		Status:         domain.CertificateStatusActive,
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrCertificateAlreadyExists) {
		t.Errorf("expected ErrCertificateAlreadyExists, got %v", err)
	}
}
