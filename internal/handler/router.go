package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"keys-depot-service/config"
)

// NewRouter はルーターを生成する。
func NewRouter(h *VaultHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	// ルート定義
	r.Route("/v1", func(r chi.Router) {
		r.Get("/certificate", h.GetCertificate)
		r.Get("/algorithms", h.ListAlgorithms)
		r.Route("/keys", func(r chi.Router) {
			r.Get("/", h.ListKeys)
			r.Post("/", h.AddKey)
			r.Get("/{key_name}", h.GetKey)
			r.Put("/{key_name}", h.UpdateKey)
			r.Delete("/{key_name}", h.DropKey)
			r.Post("/{key_name}/check", h.CheckKey)
		})
	})

	if cfg.OtelEnabled {
		return otelhttp.NewHandler(r, "keys-depot-service")
	}
	return r
}
