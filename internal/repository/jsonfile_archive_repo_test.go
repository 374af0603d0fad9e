package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

// ファイル未作成の状態では空のアーカイブを返すことを検証
func TestJSONFileArchiveRepo_MissingFile_ReturnsEmpty(t *testing.T) {
	repo := NewJSONFileArchiveRepo(filepath.Join(t.TempDir(), "archive.json"))

	entries, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}
}

// Appendしたエントリが次のLoadAllで読めることを検証
func TestJSONFileArchiveRepo_AppendThenLoad(t *testing.T) {
	repo := NewJSONFileArchiveRepo(filepath.Join(t.TempDir(), "archive.json"))
	ctx := context.Background()

	published := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	entry := model.ArchiveEntry{
		Headline:      "Village Powers Itself With Solar Grid",
		OriginalTitle: "Remote village completes solar microgrid",
		SourceURL:     "https://example.com/solar",
		PublishedAt:   published,
	}

	if err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entries, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Headline != entry.Headline {
		t.Errorf("Headline = %q, want %q", entries[0].Headline, entry.Headline)
	}
	if entries[0].OriginalTitle != entry.OriginalTitle {
		t.Errorf("OriginalTitle = %q, want %q", entries[0].OriginalTitle, entry.OriginalTitle)
	}
	if !entries[0].PublishedAt.Equal(published) {
		t.Errorf("PublishedAt = %v, want %v", entries[0].PublishedAt, published)
	}
}

// original_titleフィールドを持たない旧形式のデータを読めることを検証
func TestJSONFileArchiveRepo_LegacyRecordWithoutOriginalTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.json")
	legacy := `[{"headline":"Old Headline","source_url":"https://example.com/old","published_at":"2025-01-15T00:00:00Z"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := NewJSONFileArchiveRepo(path)
	entries, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].OriginalTitle != "" {
		t.Errorf("OriginalTitle = %q, want empty", entries[0].OriginalTitle)
	}
}

// 壊れたJSONファイルはエラーを返すことを検証
func TestJSONFileArchiveRepo_MalformedFile_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.json")
	if err := os.WriteFile(path, []byte("{not valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := NewJSONFileArchiveRepo(path)
	_, err := repo.LoadAll(context.Background())
	if err == nil {
		t.Fatal("expected error for malformed file, got nil")
	}

	// 読み込み失敗はARCHIVE_LOAD_FAILEDの統一エラーであること
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeArchiveLoadFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeArchiveLoadFailed)
	}
}

// Appendが既存エントリを保持したまま追記することを検証
func TestJSONFileArchiveRepo_AppendPreservesExisting(t *testing.T) {
	repo := NewJSONFileArchiveRepo(filepath.Join(t.TempDir(), "archive.json"))
	ctx := context.Background()

	for i, headline := range []string{"First", "Second", "Third"} {
		entry := model.ArchiveEntry{
			Headline:    headline,
			SourceURL:   "https://example.com/" + headline,
			PublishedAt: time.Date(2026, 8, 20+i, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append(%q) error = %v", headline, err)
		}
	}

	entries, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Headline != "First" || entries[2].Headline != "Third" {
		t.Errorf("order not preserved: %q, %q, %q",
			entries[0].Headline, entries[1].Headline, entries[2].Headline)
	}
}

// データディレクトリが存在しない場合に作成されることを検証
func TestJSONFileArchiveRepo_CreatesDataDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "archive.json")
	repo := NewJSONFileArchiveRepo(path)

	err := repo.Append(context.Background(), model.ArchiveEntry{
		Headline:    "Headline",
		SourceURL:   "https://example.com/a",
		PublishedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("archive file not created: %v", err)
	}
}
