package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

// pendingRecord はレビュー待ちJSONファイル内の1レコード。
type pendingRecord struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Link             string              `json:"link"`
	Description      string              `json:"description"`
	PublishedAt      time.Time           `json:"published_at"`
	SourceName       string              `json:"source_name"`
	Category         model.Category      `json:"category"`
	Score            int                 `json:"score"`
	RewrittenTitle   string              `json:"rewritten_title"`
	RewrittenSummary string              `json:"rewritten_summary"`
	Confidence       string              `json:"confidence"`
	ImageURL         string              `json:"image_url,omitempty"`
	Status           model.PendingStatus `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// JSONFilePendingRepo はJSONファイルを使用したレビュー待ち記事リポジトリ。
type JSONFilePendingRepo struct {
	path string
	mu   sync.Mutex
}

// NewJSONFilePendingRepo はJSONFilePendingRepoを生成する。
func NewJSONFilePendingRepo(path string) *JSONFilePendingRepo {
	return &JSONFilePendingRepo{path: path}
}

// Create はレビュー待ち記事を作成する。
func (r *JSONFilePendingRepo) Create(_ context.Context, article *model.PendingArticle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readRecords()
	if err != nil {
		return err
	}

	records = append(records, toPendingRecord(article))
	return writeJSONFile(r.path, records)
}

// List は指定ステータスの記事一覧を作成日時の降順で返す。
// statusが空文字列の場合は全件を返す。
func (r *JSONFilePendingRepo) List(_ context.Context, status model.PendingStatus) ([]*model.PendingArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readRecords()
	if err != nil {
		return nil, err
	}

	var articles []*model.PendingArticle
	for _, rec := range records {
		if status != "" && rec.Status != status {
			continue
		}
		articles = append(articles, fromPendingRecord(rec))
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})

	return articles, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *JSONFilePendingRepo) FindByID(_ context.Context, id string) (*model.PendingArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readRecords()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.ID == id {
			return fromPendingRecord(rec), nil
		}
	}
	return nil, nil
}

// UpdateStatus は記事のステータスと更新日時を更新する。
// 指定IDが存在しない場合はエラーを返す。
func (r *JSONFilePendingRepo) UpdateStatus(_ context.Context, id string, status model.PendingStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.readRecords()
	if err != nil {
		return err
	}

	found := false
	for i := range records {
		if records[i].ID == id {
			records[i].Status = status
			records[i].UpdatedAt = updatedAt
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("レビュー待ち記事が見つかりません: %s", id)
	}

	return writeJSONFile(r.path, records)
}

// readRecords はレビュー待ちファイルを読み込む。呼び出し側でロックを取ること。
func (r *JSONFilePendingRepo) readRecords() ([]pendingRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レビュー待ちファイルの読み取りに失敗しました: %w", err)
	}

	var records []pendingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("レビュー待ちファイルのパースに失敗しました: %w", err)
	}
	return records, nil
}

func toPendingRecord(a *model.PendingArticle) pendingRecord {
	return pendingRecord{
		ID:               a.ID,
		Title:            a.Candidate.Title,
		Link:             a.Candidate.Link,
		Description:      a.Candidate.Description,
		PublishedAt:      a.Candidate.PublishedAt,
		SourceName:       a.Candidate.SourceName,
		Category:         a.Candidate.Category,
		Score:            a.Candidate.Score,
		RewrittenTitle:   a.RewrittenTitle,
		RewrittenSummary: a.RewrittenSummary,
		Confidence:       a.Confidence,
		ImageURL:         a.ImageURL,
		Status:           a.Status,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func fromPendingRecord(rec pendingRecord) *model.PendingArticle {
	return &model.PendingArticle{
		ID: rec.ID,
		Candidate: model.Candidate{
			ID:          rec.ID,
			Title:       rec.Title,
			Link:        rec.Link,
			Description: rec.Description,
			PublishedAt: rec.PublishedAt,
			SourceName:  rec.SourceName,
			Category:    rec.Category,
			Score:       rec.Score,
		},
		RewrittenTitle:   rec.RewrittenTitle,
		RewrittenSummary: rec.RewrittenSummary,
		Confidence:       rec.Confidence,
		ImageURL:         rec.ImageURL,
		Status:           rec.Status,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

// compile-time interface check
var _ PendingRepository = (*JSONFilePendingRepo)(nil)
