package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/harenews/internal/model"
)

// WriteErrorResponseが統一フォーマットのJSONを書き込むことを検証
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, model.NewPendingNotFoundError("art-1"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONではありません: %v", err)
	}
	if body.Code != "PENDING_NOT_FOUND" {
		t.Errorf("code = %q, want PENDING_NOT_FOUND", body.Code)
	}
	if body.Message == "" || body.Action == "" {
		t.Error("message and action should not be empty")
	}
}

// WriteInternalServerErrorが詳細を含まない一般的なメッセージを返すことを検証
func TestWriteInternalServerError_GenericMessage(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONではありません: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}
