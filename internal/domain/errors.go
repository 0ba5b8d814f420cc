package domain

import "errors"

var (
	// ErrCertificateNotFound は証明書IVに対応する登録が存在しない場合のエラー。
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrInvalidCertificateIV は証明書IVトークンの形式が不正な場合のエラー。
	ErrInvalidCertificateIV = errors.New("invalid certificate IV")

	// ErrLicenseNotActive はライセンスがactive以外の場合のエラー。
	ErrLicenseNotActive = errors.New("license is not active")

	// ErrKeyNotFound は指定された名前の鍵が存在しない場合のエラー。
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyAlreadyExists は同名の鍵が既に存在する場合のエラー。
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrInvalidKeyName は鍵名の形式が不正な場合のエラー。
	ErrInvalidKeyName = errors.New("invalid key name")

	// ErrInvalidDescription は説明が長すぎる場合のエラー。
	ErrInvalidDescription = errors.New("invalid description")

	// ErrInvalidKeyValue は鍵の値が空または長すぎる場合のエラー。
	ErrInvalidKeyValue = errors.New("invalid key value")

	// ErrInvalidPassword は暗号化パスワードが空または長すぎる場合のエラー。
	ErrInvalidPassword = errors.New("invalid crypto password")

	// ErrInvalidAlgorithm はアルゴリズム名が定義外の場合のエラー。
	ErrInvalidAlgorithm = errors.New("invalid crypto algorithm")

	// ErrCryptoFailed は暗号化・復号の失敗（パスワード不一致、破損、サイズ超過）のエラー。
	ErrCryptoFailed = errors.New("crypto operation failed")

	// ErrRevealNotSupported は不可逆アルゴリズムの保護値を復元しようとした場合のエラー。
	ErrRevealNotSupported = errors.New("reveal is not supported for this algorithm")

	// ErrCertificateAlreadyExists は登録ID・証明書IVが重複する場合のエラー。
	ErrCertificateAlreadyExists = errors.New("certificate already exists")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)
