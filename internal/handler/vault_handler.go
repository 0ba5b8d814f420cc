// Package handler はHTTPハンドラを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"keys-depot-service/internal/domain"
	"keys-depot-service/internal/middleware"
	"keys-depot-service/internal/usecase"
	"keys-depot-service/pkg/httputil"
)

// CertificateIVHeader は証明書IVトークンを渡すリクエストヘッダ名。
const CertificateIVHeader = "X-Certificate-IV"

// VaultHandler はHTTPハンドラを提供する。
type VaultHandler struct {
	service *usecase.VaultService
}

// NewVaultHandler は新しいVaultHandlerを生成する。
func NewVaultHandler(service *usecase.VaultService) *VaultHandler {
	return &VaultHandler{service: service}
}

// CertificateResponse は証明書情報のレスポンス形式。
type CertificateResponse struct {
	RegistrationID  string `json:"registration_id"`
	Owner           string `json:"owner"`
	Email           string `json:"email"`
	LicenseeAddress string `json:"licensee_address,omitempty"`
	LicensedDate    string `json:"licensed_date"`
	Status          string `json:"status"`
}

// KeyResponse は鍵のレスポンス形式。
type KeyResponse struct {
	KeyName         string `json:"key_name"`
	Key             string `json:"key"`
	Description     string `json:"description,omitempty"`
	CryptoPassword  string `json:"crypto_password"`
	CryptoAlgorithm string `json:"crypto_algorithm"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// KeyListResponse は鍵一覧のレスポンス形式。
type KeyListResponse struct {
	Keys []KeyResponse `json:"keys"`
}

// KeyMetadataResponse はAdd/Updateの確認レスポンス形式。鍵の値は含まない。
type KeyMetadataResponse struct {
	KeyName         string `json:"key_name"`
	CryptoAlgorithm string `json:"crypto_algorithm"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// DropKeyResponse は削除確認のレスポンス形式。
type DropKeyResponse struct {
	KeyName string `json:"key_name"`
}

// CheckKeyResponse は照合結果のレスポンス形式。
type CheckKeyResponse struct {
	KeyName string `json:"key_name"`
	Match   bool   `json:"match"`
}

// AlgorithmListResponse は選択可能なアルゴリズム一覧のレスポンス形式。
type AlgorithmListResponse struct {
	Algorithms []string `json:"algorithms"`
}

// keyRequest はAdd/Updateのリクエスト形式。
type keyRequest struct {
	KeyName         string `json:"key_name"`
	Key             string `json:"key"`
	Description     string `json:"description"`
	Password        string `json:"password"`
	CryptoAlgorithm string `json:"crypto_algorithm"`
}

// checkKeyRequest はCheckのリクエスト形式。
type checkKeyRequest struct {
	Key string `json:"key"`
}

// writeDomainError はドメインエラーをHTTPステータスとエラーコードに対応付ける。
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCertificateIV):
		httputil.Error(w, http.StatusBadRequest, "INVALID_CERTIFICATE_IV", "invalid certificate IV format")
	case errors.Is(err, domain.ErrCertificateNotFound):
		httputil.Error(w, http.StatusNotFound, "CERTIFICATE_NOT_FOUND", "certificate not found")
	case errors.Is(err, domain.ErrLicenseNotActive):
		httputil.Error(w, http.StatusForbidden, "LICENSE_NOT_ACTIVE", "license is not active")
	case errors.Is(err, domain.ErrKeyNotFound):
		httputil.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "key not found")
	case errors.Is(err, domain.ErrKeyAlreadyExists):
		httputil.Error(w, http.StatusConflict, "KEY_ALREADY_EXISTS", "key already exists with this name")
	case errors.Is(err, domain.ErrInvalidKeyName):
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEY_NAME", "invalid key name format")
	case errors.Is(err, domain.ErrInvalidKeyValue):
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEY_VALUE", "key value is empty or too long")
	case errors.Is(err, domain.ErrInvalidDescription):
		httputil.Error(w, http.StatusBadRequest, "INVALID_DESCRIPTION", "description is too long")
	case errors.Is(err, domain.ErrInvalidPassword):
		httputil.Error(w, http.StatusBadRequest, "INVALID_PASSWORD", "crypto password is empty or too long")
	case errors.Is(err, domain.ErrInvalidAlgorithm):
		httputil.Error(w, http.StatusBadRequest, "INVALID_ALGORITHM", "unknown crypto algorithm")
	case errors.Is(err, domain.ErrCryptoFailed):
		httputil.Error(w, http.StatusUnprocessableEntity, "CRYPTO_FAILED", "crypto operation failed")
	default:
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func toKeyResponse(key *domain.RevealedKey) KeyResponse {
	return KeyResponse{
		KeyName:         key.KeyName,
		Key:             key.Value,
		Description:     key.Description,
		CryptoPassword:  key.CryptoPassword,
		CryptoAlgorithm: string(key.Algorithm),
		CreatedAt:       key.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       key.UpdatedAt.Format(time.RFC3339),
	}
}

// GetCertificate は証明書情報を取得する。ライセンスが無効でも参照できる。
func (h *VaultHandler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)

	cert, err := h.service.GetCertificate(r.Context(), certificateIV)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "GET_CERTIFICATE", "", "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "GET_CERTIFICATE", "", "SUCCESS")
	httputil.JSON(w, http.StatusOK, CertificateResponse{
		RegistrationID:  cert.RegistrationID,
		Owner:           cert.Owner,
		Email:           cert.Email,
		LicenseeAddress: cert.LicenseeAddress,
		LicensedDate:    cert.LicensedDate.Format(time.RFC3339),
		Status:          string(cert.Status),
	})
}

// ListKeys は全鍵を鍵名昇順で取得する。
func (h *VaultHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)

	keys, err := h.service.GetKeys(r.Context(), certificateIV)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "GET_KEYS", "", "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "GET_KEYS", "", "SUCCESS")
	response := KeyListResponse{
		Keys: make([]KeyResponse, len(keys)),
	}
	for i, k := range keys {
		response.Keys[i] = toKeyResponse(k)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// GetKey は指定された名前の鍵を取得する。
func (h *VaultHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)
	keyName := chi.URLParam(r, "key_name")

	key, err := h.service.GetKey(r.Context(), certificateIV, keyName)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "GET_KEY", keyName, "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "GET_KEY", keyName, "SUCCESS")
	httputil.JSON(w, http.StatusOK, toKeyResponse(key))
}

// AddKey は新しい鍵を保管する。
func (h *VaultHandler) AddKey(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)

	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	key, err := h.service.AddKey(r.Context(), certificateIV, req.KeyName, req.Key, req.Description, req.Password, domain.CryptoAlgorithm(req.CryptoAlgorithm))
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "ADD_KEY", req.KeyName, "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "ADD_KEY", key.KeyName, "SUCCESS")
	httputil.JSON(w, http.StatusCreated, KeyMetadataResponse{
		KeyName:         key.KeyName,
		CryptoAlgorithm: string(key.Algorithm),
		CreatedAt:       key.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       key.UpdatedAt.Format(time.RFC3339),
	})
}

// UpdateKey は既存の鍵を新しい入力で全置換する。
func (h *VaultHandler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)
	keyName := chi.URLParam(r, "key_name")

	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	key, err := h.service.UpdateKey(r.Context(), certificateIV, keyName, req.Key, req.Description, req.Password, domain.CryptoAlgorithm(req.CryptoAlgorithm))
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "UPDATE_KEY", keyName, "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "UPDATE_KEY", keyName, "SUCCESS")
	httputil.JSON(w, http.StatusOK, KeyMetadataResponse{
		KeyName:         key.KeyName,
		CryptoAlgorithm: string(key.Algorithm),
		CreatedAt:       key.CreatedAt.Format(time.RFC3339),
	})
}

// DropKey は鍵を削除し、削除した鍵名を返す。
func (h *VaultHandler) DropKey(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)
	keyName := chi.URLParam(r, "key_name")

	removed, err := h.service.DropKey(r.Context(), certificateIV, keyName)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "DROP_KEY", keyName, "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "DROP_KEY", keyName, "SUCCESS")
	httputil.JSON(w, http.StatusOK, DropKeyResponse{KeyName: removed})
}

// CheckKey は候補の値が保管された鍵と一致するかを返す。
func (h *VaultHandler) CheckKey(w http.ResponseWriter, r *http.Request) {
	certificateIV := r.Header.Get(CertificateIVHeader)
	keyName := chi.URLParam(r, "key_name")

	var req checkKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	match, err := h.service.CheckKey(r.Context(), certificateIV, keyName, req.Key)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "CHECK_KEY", keyName, "FAILED")
		writeDomainError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "CHECK_KEY", keyName, "SUCCESS")
	httputil.JSON(w, http.StatusOK, CheckKeyResponse{KeyName: keyName, Match: match})
}

// ListAlgorithms は選択可能なアルゴリズム名の一覧を返す。認証不要。
func (h *VaultHandler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, AlgorithmListResponse{Algorithms: domain.CryptoAlgorithms()})
}
