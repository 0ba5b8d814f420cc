package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"keys-depot-service/internal/domain"
	"keys-depot-service/internal/repository"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// generateCertificateIV は新しい証明書IVトークンを生成する。
// 32バイトの乱数を16進エンコードした64文字の英数字列。
func generateCertificateIV() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate certificate IV: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// registerCmd は証明書の登録コマンド。
// アカウント登録はAPI経由ではなく管理者がDBに直接行う。
func registerCmd() *cobra.Command {
	var (
		owner   string
		email   string
		address string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new certificate in the depot database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			db, err := connectDB()
			if err != nil {
				return err
			}

			certificateIV, err := generateCertificateIV()
			if err != nil {
				return err
			}

			cert := &domain.Certificate{
				CertificateIV:   certificateIV,
				RegistrationID:  uuid.New().String(),
				Owner:           owner,
				Email:           email,
				LicenseeAddress: address,
				Status:          domain.CertificateStatusActive,
			}

			certRepo := repository.NewCertificateRepository(db)
			if err := certRepo.Create(ctx, cert); err != nil {
				return fmt.Errorf("failed to register certificate: %w", err)
			}

			fmt.Printf("Registered certificate for %q\n", owner)
			fmt.Printf("Registration ID: %s\n", cert.RegistrationID)
			// 証明書IVはここでしか表示されない
			fmt.Printf("Certificate IV:  %s\n", cert.CertificateIV)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Owner email (required)")
	cmd.Flags().StringVar(&address, "address", "", "Licensee address (optional)")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("email")
	return cmd
}
