package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

const testNewsAPIBody = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": null, "name": "Ocean Daily"},
      "author": "A. Writer",
      "title": "Coral Reef Recovery Confirmed",
      "description": "Reef scientists confirm the trend.",
      "url": "https://oceandaily.example/reef",
      "publishedAt": "2026-08-28T09:30:00Z"
    },
    {
      "source": {"id": null, "name": "Wire"},
      "author": null,
      "title": "Undated Story",
      "description": "",
      "url": "https://wire.example/x",
      "publishedAt": null
    }
  ]
}`

func newTestNewsAPISource(t *testing.T, handler http.HandlerFunc) *NewsAPISource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewNewsAPISource(
		"test-api-key",
		"coral reef recovery",
		model.SourceMeta{Name: "NewsAPI: coral reef", Category: model.CategoryScience},
		srv.Client(),
		nil,
	)
	s.endpoint = srv.URL
	return s
}

func TestNewsAPISource_Fetch(t *testing.T) {
	var gotKey, gotQuery string
	s := newTestNewsAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testNewsAPIBody))
	})

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotKey != "test-api-key" {
		t.Errorf("X-Api-Key = %q, want %q", gotKey, "test-api-key")
	}
	if gotQuery != "coral reef recovery" {
		t.Errorf("q = %q, want %q", gotQuery, "coral reef recovery")
	}

	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Title != "Coral Reef Recovery Confirmed" {
		t.Errorf("Title = %q", items[0].Title)
	}
	if items[0].Link != "https://oceandaily.example/reef" {
		t.Errorf("Link = %q", items[0].Link)
	}
	// 記事ごとの媒体名を保持し、信頼ソース判定に使えること
	if items[0].SourceName != "Ocean Daily" {
		t.Errorf("SourceName = %q, want %q", items[0].SourceName, "Ocean Daily")
	}
	if items[1].SourceName != "Wire" {
		t.Errorf("SourceName = %q, want %q", items[1].SourceName, "Wire")
	}
	if items[0].PublishedAt == nil {
		t.Error("PublishedAt is nil, want parsed timestamp")
	}
	if items[1].PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil", items[1].PublishedAt)
	}
}

func TestNewsAPISource_Fetch_HTTPError(t *testing.T) {
	s := newTestNewsAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for status 429, got nil")
	}

	// 失敗はSOURCE_FETCH_FAILEDの統一エラーであること
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeSourceFetchFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeSourceFetchFailed)
	}
}

func TestNewsAPISource_Fetch_APILevelError(t *testing.T) {
	// HTTP 200でもstatusフィールドがerrorの場合は失敗として扱う
	s := newTestNewsAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	})

	if _, err := s.Fetch(context.Background()); err == nil {
		t.Error("expected error for API-level error response, got nil")
	}
}

func TestNewsAPISource_Fetch_MalformedJSON(t *testing.T) {
	s := newTestNewsAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	if _, err := s.Fetch(context.Background()); err == nil {
		t.Error("expected JSON parse error, got nil")
	}
}

func TestNewsAPISource_Fetch_LimiterRespectsCancel(t *testing.T) {
	s := newTestNewsAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testNewsAPIBody))
	})
	s.limiter = NewNewsAPILimiter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// バーストを使い切った状態でキャンセル済みコンテキストを渡すとエラーになる
	s.limiter.AllowN(time.Now(), 2)
	if _, err := s.Fetch(ctx); err == nil {
		t.Error("expected context cancellation error, got nil")
	}
}
