package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

const testRSSBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.org</link>
    <item>
      <title>Coral Reef Shows Record Recovery</title>
      <link>https://example.org/reef</link>
      <description>Scientists report remarkable progress.</description>
      <pubDate>Fri, 28 Aug 2026 09:30:00 GMT</pubDate>
    </item>
    <item>
      <title>No Link Item</title>
      <guid>https://example.org/guid-as-link</guid>
      <description>Uses GUID as link.</description>
    </item>
  </channel>
</rss>`

func TestSources_ImplementSourceInterface(t *testing.T) {
	var _ Source = (*RSSSource)(nil)
	var _ Source = (*NewsAPISource)(nil)
}

func TestRSSSource_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSSBody))
	}))
	defer srv.Close()

	s := NewRSSSource(srv.URL, model.SourceMeta{Name: "Test Feed", Category: model.CategoryScience}, srv.Client(), nil, 1<<20)

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}

	first := items[0]
	if first.Title != "Coral Reef Shows Record Recovery" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Link != "https://example.org/reef" {
		t.Errorf("Link = %q", first.Link)
	}
	if first.PublishedAt == nil {
		t.Error("PublishedAt is nil, want parsed pubDate")
	} else {
		want := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
		if !first.PublishedAt.Equal(want) {
			t.Errorf("PublishedAt = %v, want %v", first.PublishedAt, want)
		}
	}

	// Linkのない記事はURL形式のGUIDをLinkとして使用する
	second := items[1]
	if second.Link != "https://example.org/guid-as-link" {
		t.Errorf("Link = %q, want GUID fallback", second.Link)
	}
	if second.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil for undated item", second.PublishedAt)
	}
}

func TestRSSSource_Fetch_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewRSSSource(srv.URL, model.SourceMeta{Name: "Down Feed"}, srv.Client(), nil, 1<<20)

	_, err := s.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for status 503, got nil")
	}

	// 失敗は取得元名を含むSOURCE_FETCH_FAILEDの統一エラーであること
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeSourceFetchFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeSourceFetchFailed)
	}
	if !strings.Contains(apiErr.Message, "Down Feed") {
		t.Errorf("Message = %q, want to contain source name", apiErr.Message)
	}
}

func TestRSSSource_Fetch_MalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not XML"))
	}))
	defer srv.Close()

	s := NewRSSSource(srv.URL, model.SourceMeta{Name: "Broken Feed"}, srv.Client(), nil, 1<<20)

	if _, err := s.Fetch(context.Background()); err == nil {
		t.Error("expected parse error, got nil")
	}
}

type rejectAllValidator struct{}

func (rejectAllValidator) ValidateURL(string) error {
	return context.Canceled // 中身は問わない、エラーであること
}

func TestRSSSource_Fetch_SSRFBlocked(t *testing.T) {
	s := NewRSSSource("http://169.254.169.254/feed", model.SourceMeta{Name: "Evil"}, http.DefaultClient, rejectAllValidator{}, 1<<20)

	if _, err := s.Fetch(context.Background()); err == nil {
		t.Error("expected SSRF validation error, got nil")
	}
}

func TestConvertFeedItems_NilItemSkipped(t *testing.T) {
	items := convertFeedItems(nil)
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}
