// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/harenews/internal/model"
)

// ArchiveRepository は公開済み記事履歴の永続化インターフェース。
// パイプラインは読み取りのみを行い、追記は承認フローだけが行う。
type ArchiveRepository interface {
	// LoadAll は全アーカイブエントリを返す。履歴が存在しない場合は空スライスを返す。
	LoadAll(ctx context.Context) ([]model.ArchiveEntry, error)

	// Append はアーカイブに1件追記する。重複チェックは行わない。
	Append(ctx context.Context, entry model.ArchiveEntry) error
}

// PendingRepository はレビュー待ち記事の永続化インターフェース。
type PendingRepository interface {
	// Create はレビュー待ち記事を作成する。
	Create(ctx context.Context, article *model.PendingArticle) error

	// List は指定ステータスの記事一覧を作成日時の降順で返す。
	// statusが空文字列の場合は全件を返す。
	List(ctx context.Context, status model.PendingStatus) ([]*model.PendingArticle, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PendingArticle, error)

	// UpdateStatus は記事のステータスと更新日時を更新する。
	UpdateStatus(ctx context.Context, id string, status model.PendingStatus, updatedAt time.Time) error
}
