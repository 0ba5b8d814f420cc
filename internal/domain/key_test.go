package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKeyName(t *testing.T) {
	valid := []string{"api_key", "_private", "Key1", "a", strings.Repeat("a", MaxKeyNameLength)}
	for _, name := range valid {
		if err := ValidateKeyName(name); err != nil {
			t.Errorf("ValidateKeyName(%q): unexpected error %v", name, err)
		}
	}

	invalid := []string{"", "1bad", "bad-name", "bad name", "日本語", strings.Repeat("a", MaxKeyNameLength+1)}
	for _, name := range invalid {
		if err := ValidateKeyName(name); !errors.Is(err, ErrInvalidKeyName) {
			t.Errorf("ValidateKeyName(%q): want ErrInvalidKeyName, got %v", name, err)
		}
	}
}

func TestValidateCertificateIV(t *testing.T) {
	valid := []string{"abc123", "A1", strings.Repeat("x", MaxCertificateIVLength)}
	for _, iv := range valid {
		if err := ValidateCertificateIV(iv); err != nil {
			t.Errorf("ValidateCertificateIV(%q): unexpected error %v", iv, err)
		}
	}

	invalid := []string{"", "with space", "with-dash", strings.Repeat("x", MaxCertificateIVLength+1)}
	for _, iv := range invalid {
		if err := ValidateCertificateIV(iv); !errors.Is(err, ErrInvalidCertificateIV) {
			t.Errorf("ValidateCertificateIV(%q): want ErrInvalidCertificateIV, got %v", iv, err)
		}
	}
}

func TestValidateValueAndPassword(t *testing.T) {
	if err := ValidateValue(""); !errors.Is(err, ErrInvalidKeyValue) {
		t.Errorf("want ErrInvalidKeyValue for empty value, got %v", err)
	}
	if err := ValidateValue(strings.Repeat("a", MaxValueLength+1)); !errors.Is(err, ErrInvalidKeyValue) {
		t.Errorf("want ErrInvalidKeyValue for oversized value, got %v", err)
	}
	if err := ValidatePassword(""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("want ErrInvalidPassword for empty password, got %v", err)
	}
	if err := ValidateDescription(strings.Repeat("a", MaxDescriptionLength+1)); !errors.Is(err, ErrInvalidDescription) {
		t.Errorf("want ErrInvalidDescription for oversized description, got %v", err)
	}
	// 説明は空でもよい
	if err := ValidateDescription(""); err != nil {
		t.Errorf("unexpected error for empty description: %v", err)
	}
}

func TestCryptoAlgorithm(t *testing.T) {
	for _, algorithm := range []CryptoAlgorithm{AlgorithmAES256, AlgorithmTripleDES, AlgorithmSHA256} {
		if !algorithm.Valid() {
			t.Errorf("%s: want Valid()=true", algorithm)
		}
	}
	if CryptoAlgorithm("ROT13").Valid() {
		t.Error("want Valid()=false for unknown algorithm")
	}

	if !AlgorithmAES256.Reversible() || !AlgorithmTripleDES.Reversible() {
		t.Error("cipher algorithms must be reversible")
	}
	if AlgorithmSHA256.Reversible() {
		t.Error("hash algorithm must not be reversible")
	}

	if len(CryptoAlgorithms()) != 3 {
		t.Errorf("want 3 algorithms, got %d", len(CryptoAlgorithms()))
	}
}

func TestCertificateActive(t *testing.T) {
	cert := &Certificate{Status: CertificateStatusActive}
	if !cert.Active() {
		t.Error("want Active()=true for active status")
	}
	for _, status := range []CertificateStatus{CertificateStatusExpired, CertificateStatusSuspended} {
		cert := &Certificate{Status: status}
		if cert.Active() {
			t.Errorf("want Active()=false for %s status", status)
		}
	}
}
