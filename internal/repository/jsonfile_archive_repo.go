package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

// archiveRecord はアーカイブJSONファイル内の1レコード。
// original_titleは後から追加されたフィールドのため、旧データでは存在しない。
type archiveRecord struct {
	Headline      string    `json:"headline"`
	OriginalTitle string    `json:"original_title,omitempty"`
	SourceURL     string    `json:"source_url"`
	PublishedAt   time.Time `json:"published_at"`
}

// JSONFileArchiveRepo はJSONファイルを使用したアーカイブリポジトリ。
// 小規模運用向けのデフォルト実装で、ファイル全体を読み書きする。
type JSONFileArchiveRepo struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileArchiveRepo はJSONFileArchiveRepoを生成する。
func NewJSONFileArchiveRepo(path string) *JSONFileArchiveRepo {
	return &JSONFileArchiveRepo{path: path}
}

// LoadAll は全アーカイブエントリを返す。
// ファイルが存在しない場合は初回実行とみなし空スライスを返す。
func (r *JSONFileArchiveRepo) LoadAll(_ context.Context) ([]model.ArchiveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readRecords()
	if err != nil {
		return nil, model.NewArchiveLoadFailedError(err.Error())
	}

	entries := make([]model.ArchiveEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, model.ArchiveEntry{
			Headline:      rec.Headline,
			OriginalTitle: rec.OriginalTitle,
			SourceURL:     rec.SourceURL,
			PublishedAt:   rec.PublishedAt,
		})
	}
	return entries, nil
}

// Append はアーカイブに1件追記する。
// 書き込みは一時ファイル経由のリネームで行い、途中で失敗しても既存データを壊さない。
func (r *JSONFileArchiveRepo) Append(_ context.Context, entry model.ArchiveEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readRecords()
	if err != nil {
		return err
	}

	records = append(records, archiveRecord{
		Headline:      entry.Headline,
		OriginalTitle: entry.OriginalTitle,
		SourceURL:     entry.SourceURL,
		PublishedAt:   entry.PublishedAt,
	})

	return writeJSONFile(r.path, records)
}

// readRecords はアーカイブファイルを読み込む。呼び出し側でロックを取ること。
func (r *JSONFileArchiveRepo) readRecords() ([]archiveRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アーカイブファイルの読み取りに失敗しました: %w", err)
	}

	var records []archiveRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("アーカイブファイルのパースに失敗しました: %w", err)
	}
	return records, nil
}

// writeJSONFile はvをJSONとして一時ファイルに書き込み、アトミックに置き換える。
func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONへの変換に失敗しました: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("一時ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ArchiveRepository = (*JSONFileArchiveRepo)(nil)
