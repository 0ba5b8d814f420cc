// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// WriteAuditLog は鍵操作の監査ログを出力する。鍵の値・パスワード・証明書IVは記録しない。
func WriteAuditLog(ctx context.Context, operation, keyName, result string) {
	slog.InfoContext(ctx, "depot operation completed",
		"operation", operation,
		"key_name", keyName,
		"result", result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
