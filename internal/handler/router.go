package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/harenews/internal/metrics"
	"github.com/hitoshi/harenews/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	ReviewService ReviewServiceInterface
	RateLimiter   *middleware.RateLimiter
	Logger        *slog.Logger
	Gatherer      prometheus.Gatherer
}

// NewRouter はレビューAPIのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → RateLimit（/api配下のみ）
//
// /healthzと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// ヘルスチェック
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// レビューAPI
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		h := NewReviewHandler(deps.ReviewService)
		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", h.ListPending)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/approve", h.Approve)
				r.Post("/deny", h.Deny)
			})
		})
	})

	return r
}
