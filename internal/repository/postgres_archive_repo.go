package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/harenews/internal/model"
)

// PostgresArchiveRepo はPostgreSQLを使用したアーカイブリポジトリ。
type PostgresArchiveRepo struct {
	db *sql.DB
}

// NewPostgresArchiveRepo はPostgresArchiveRepoを生成する。
func NewPostgresArchiveRepo(db *sql.DB) *PostgresArchiveRepo {
	return &PostgresArchiveRepo{db: db}
}

// LoadAll は全アーカイブエントリを公開日時の昇順で返す。
func (r *PostgresArchiveRepo) LoadAll(ctx context.Context) ([]model.ArchiveEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT headline, original_title, source_url, published_at
		 FROM archive_entries
		 ORDER BY published_at ASC`,
	)
	if err != nil {
		return nil, model.NewArchiveLoadFailedError(err.Error())
	}
	defer rows.Close()

	entries := []model.ArchiveEntry{}
	for rows.Next() {
		var entry model.ArchiveEntry
		var originalTitle sql.NullString

		if err := rows.Scan(&entry.Headline, &originalTitle, &entry.SourceURL, &entry.PublishedAt); err != nil {
			return nil, fmt.Errorf("アーカイブの読み取りに失敗しました: %w", err)
		}
		entry.OriginalTitle = nullStringValue(originalTitle)

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アーカイブの走査に失敗しました: %w", err)
	}

	return entries, nil
}

// Append はアーカイブに1件追記する。
func (r *PostgresArchiveRepo) Append(ctx context.Context, entry model.ArchiveEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO archive_entries (headline, original_title, source_url, published_at)
		 VALUES ($1, $2, $3, $4)`,
		entry.Headline, nullString(entry.OriginalTitle), entry.SourceURL, entry.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("アーカイブへの追記に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ArchiveRepository = (*PostgresArchiveRepo)(nil)
