package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

// PostgresPendingRepo はPostgreSQLを使用したレビュー待ち記事リポジトリ。
type PostgresPendingRepo struct {
	db *sql.DB
}

// NewPostgresPendingRepo はPostgresPendingRepoを生成する。
func NewPostgresPendingRepo(db *sql.DB) *PostgresPendingRepo {
	return &PostgresPendingRepo{db: db}
}

// Create はレビュー待ち記事を作成する。
func (r *PostgresPendingRepo) Create(ctx context.Context, article *model.PendingArticle) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_articles (id, title, link, description, published_at,
		                               source_name, category, score,
		                               rewritten_title, rewritten_summary, confidence,
		                               image_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		article.ID, article.Candidate.Title, article.Candidate.Link,
		article.Candidate.Description, article.Candidate.PublishedAt,
		article.Candidate.SourceName, article.Candidate.Category, article.Candidate.Score,
		article.RewrittenTitle, article.RewrittenSummary, article.Confidence,
		nullString(article.ImageURL), article.Status, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("レビュー待ち記事の作成に失敗しました: %w", err)
	}
	return nil
}

// List は指定ステータスの記事一覧を作成日時の降順で返す。
// statusが空文字列の場合は全件を返す。
func (r *PostgresPendingRepo) List(ctx context.Context, status model.PendingStatus) ([]*model.PendingArticle, error) {
	query := `SELECT id, title, link, description, published_at,
	                 source_name, category, score,
	                 rewritten_title, rewritten_summary, confidence,
	                 image_url, status, created_at, updated_at
	          FROM pending_articles`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("レビュー待ち記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []*model.PendingArticle
	for rows.Next() {
		article, err := scanPendingArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("レビュー待ち記事の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レビュー待ち記事一覧の走査に失敗しました: %w", err)
	}

	return articles, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPendingRepo) FindByID(ctx context.Context, id string) (*model.PendingArticle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, link, description, published_at,
		        source_name, category, score,
		        rewritten_title, rewritten_summary, confidence,
		        image_url, status, created_at, updated_at
		 FROM pending_articles WHERE id = $1`,
		id,
	)

	article, err := scanPendingArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レビュー待ち記事の取得に失敗しました: %w", err)
	}
	return article, nil
}

// UpdateStatus は記事のステータスと更新日時を更新する。
// 指定IDが存在しない場合はエラーを返す。
func (r *PostgresPendingRepo) UpdateStatus(ctx context.Context, id string, status model.PendingStatus, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pending_articles SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("ステータスの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("レビュー待ち記事が見つかりません: %s", id)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPendingArticle は1行をPendingArticleに読み取る。
func scanPendingArticle(row rowScanner) (*model.PendingArticle, error) {
	article := &model.PendingArticle{}
	var imageURL sql.NullString

	err := row.Scan(
		&article.ID, &article.Candidate.Title, &article.Candidate.Link,
		&article.Candidate.Description, &article.Candidate.PublishedAt,
		&article.Candidate.SourceName, &article.Candidate.Category, &article.Candidate.Score,
		&article.RewrittenTitle, &article.RewrittenSummary, &article.Confidence,
		&imageURL, &article.Status, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Candidate.ID = article.ID
	article.ImageURL = nullStringValue(imageURL)
	return article, nil
}

// compile-time interface check
var _ PendingRepository = (*PostgresPendingRepo)(nil)
