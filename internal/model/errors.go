// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// レビューAPIのレスポンスに使用する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, source, archive, curation, system
	Action   string // 操作者向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeSSRFBlocked       = "SSRF_BLOCKED"
	ErrCodeSourceFetchFailed = "SOURCE_FETCH_FAILED"
	ErrCodeArchiveLoadFailed = "ARCHIVE_LOAD_FAILED"
	ErrCodePendingNotFound   = "PENDING_NOT_FOUND"
	ErrCodeAlreadyReviewed   = "ALREADY_REVIEWED"
	ErrCodeRewriteFailed     = "REWRITE_FAILED"
)

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まるURLを設定してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを設定してください。プライベートIPへのアクセスは許可されていません。",
	}
}

// NewSourceFetchFailedError は取得元フェッチ失敗エラーを生成する。
func NewSourceFetchFailedError(sourceName, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceFetchFailed,
		Message:  fmt.Sprintf("取得元 %s のフェッチに失敗しました: %s", sourceName, reason),
		Category: "source",
		Action:   "取得元のURLとネットワーク状態を確認してください。",
	}
}

// NewArchiveLoadFailedError はアーカイブ読み込み失敗エラーを生成する。
func NewArchiveLoadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeArchiveLoadFailed,
		Message:  fmt.Sprintf("アーカイブの読み込みに失敗しました: %s", reason),
		Category: "archive",
		Action:   "アーカイブファイルまたはデータベース接続を確認してください。",
	}
}

// NewPendingNotFoundError はレビュー待ち記事未検出エラーを生成する。
func NewPendingNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodePendingNotFound,
		Message:  fmt.Sprintf("指定されたレビュー待ち記事が見つかりません: %s", id),
		Category: "curation",
		Action:   "記事IDを確認してください。",
	}
}

// NewAlreadyReviewedError はレビュー済み記事への再操作エラーを生成する。
func NewAlreadyReviewedError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReviewed,
		Message:  fmt.Sprintf("この記事はすでにレビュー済みです: %s", id),
		Category: "curation",
		Action:   "レビュー待ちの記事に対してのみ承認・却下を実行できます。",
	}
}

// NewRewriteFailedError はリライト失敗エラーを生成する。
func NewRewriteFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRewriteFailed,
		Message:  fmt.Sprintf("記事のリライトに失敗しました: %s", reason),
		Category: "curation",
		Action:   "OpenAI APIキーとモデル設定を確認してください。",
	}
}
