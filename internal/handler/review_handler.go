// Package handler はレビューAPIのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/harenews/internal/middleware"
	"github.com/hitoshi/harenews/internal/model"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	// ListPending はレビュー待ちの記事一覧を返す。
	ListPending(ctx context.Context) ([]*model.PendingArticle, error)
	// Approve は記事を承認し、アーカイブへ追記する。
	Approve(ctx context.Context, id string) (*model.PendingArticle, error)
	// Deny は記事を却下する。
	Deny(ctx context.Context, id string) (*model.PendingArticle, error)
}

// ReviewHandler はレビューAPIのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// --- レスポンス型 ---

// pendingArticleResponse はレビュー待ち記事のレスポンス。
type pendingArticleResponse struct {
	ID            string    `json:"id"`
	Headline      string    `json:"headline"`
	Summary       string    `json:"summary"`
	Confidence    string    `json:"confidence"`
	OriginalTitle string    `json:"original_title"`
	Link          string    `json:"link"`
	SourceName    string    `json:"source_name"`
	Category      string    `json:"category"`
	Score         int       `json:"score"`
	ImageURL      string    `json:"image_url,omitempty"`
	Status        string    `json:"status"`
	PublishedAt   time.Time `json:"published_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// articleListResponse はレビュー待ち記事一覧のレスポンス。
type articleListResponse struct {
	Articles []pendingArticleResponse `json:"articles"`
	Total    int                      `json:"total"`
}

func toPendingArticleResponse(a *model.PendingArticle) pendingArticleResponse {
	return pendingArticleResponse{
		ID:            a.ID,
		Headline:      a.RewrittenTitle,
		Summary:       a.RewrittenSummary,
		Confidence:    a.Confidence,
		OriginalTitle: a.Candidate.Title,
		Link:          a.Candidate.Link,
		SourceName:    a.Candidate.SourceName,
		Category:      string(a.Candidate.Category),
		Score:         a.Candidate.Score,
		ImageURL:      a.ImageURL,
		Status:        string(a.Status),
		PublishedAt:   a.Candidate.PublishedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ListPending はレビュー待ち記事の一覧を取得する。
// GET /api/articles
func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListPending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := articleListResponse{
		Articles: make([]pendingArticleResponse, 0, len(articles)),
		Total:    len(articles),
	}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, toPendingArticleResponse(a))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Approve は記事を承認する。
// POST /api/articles/:id/approve
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	article, err := h.service.Approve(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPendingArticleResponse(article))
}

// Deny は記事を却下する。
// POST /api/articles/:id/deny
func (h *ReviewHandler) Deny(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	article, err := h.service.Deny(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPendingArticleResponse(article))
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodePendingNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyReviewed:
		return http.StatusConflict
	case model.ErrCodeSourceFetchFailed, model.ErrCodeRewriteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
