package curation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/harenews/internal/model"
	"github.com/hitoshi/harenews/internal/repository"
)

// ArticleRewriter は記事リライトのインターフェース。
type ArticleRewriter interface {
	Rewrite(ctx context.Context, c model.Candidate) (*RewriteResult, error)
}

// ImagePicker は記事のアイキャッチ画像URL選定のインターフェース。
type ImagePicker interface {
	Pick(ctx context.Context, c model.Candidate) string
}

// Metrics はキュレーション処理のメトリクス収集インターフェース。
type Metrics interface {
	RecordRewriteResult(ok bool)
}

// Service は候補記事のリライト登録とレビュー操作を提供する。
type Service struct {
	rewriter ArticleRewriter
	images   ImagePicker
	pending  repository.PendingRepository
	archive  repository.ArchiveRepository
	metrics  Metrics
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。imagesとmetricsはnilを許容する。
func NewService(
	rewriter ArticleRewriter,
	images ImagePicker,
	pending repository.PendingRepository,
	archive repository.ArchiveRepository,
	metrics Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		rewriter: rewriter,
		images:   images,
		pending:  pending,
		archive:  archive,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Enqueue は選定済み候補をリライトしてレビュー待ちキューへ登録する。
// リライトに失敗した候補は元のタイトルと本文のままunverifiedとして登録する。
// 登録に失敗した候補はスキップし、登録できた件数を返す。
func (s *Service) Enqueue(ctx context.Context, candidates []model.Candidate) (int, error) {
	created := 0

	for _, c := range candidates {
		result, err := s.rewriter.Rewrite(ctx, c)
		if err != nil {
			s.logger.Warn("リライトに失敗したため元の記事をそのまま登録します",
				slog.String("title", c.Title),
				slog.String("error", err.Error()),
			)
			if s.metrics != nil {
				s.metrics.RecordRewriteResult(false)
			}
			result = &RewriteResult{
				Headline:   c.Title,
				Summary:    summaryFallback(c.Description),
				Confidence: "unverified",
			}
		} else if s.metrics != nil {
			s.metrics.RecordRewriteResult(true)
		}

		imageURL := ""
		if s.images != nil {
			imageURL = s.images.Pick(ctx, c)
		}

		now := s.now()
		article := &model.PendingArticle{
			ID:               s.newID(),
			Candidate:        c,
			RewrittenTitle:   result.Headline,
			RewrittenSummary: result.Summary,
			Confidence:       result.Confidence,
			ImageURL:         imageURL,
			Status:           model.PendingStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		article.Candidate.ID = article.ID

		if err := s.pending.Create(ctx, article); err != nil {
			s.logger.Error("レビュー待ち記事の登録に失敗しました",
				slog.String("title", c.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		created++
	}

	s.logger.Info("候補記事をレビュー待ちキューへ登録しました",
		slog.Int("candidates", len(candidates)),
		slog.Int("created", created),
	)

	return created, nil
}

// ListPending はレビュー待ちの記事一覧を返す。
func (s *Service) ListPending(ctx context.Context) ([]*model.PendingArticle, error) {
	return s.pending.List(ctx, model.PendingStatusPending)
}

// Approve は記事を承認し、アーカイブへ追記する。
// アーカイブにはリライト後の見出しと元タイトルの両方を記録し、
// 以降のパイプライン実行で同じ記事が再選定されないようにする。
func (s *Service) Approve(ctx context.Context, id string) (*model.PendingArticle, error) {
	article, err := s.findReviewable(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := model.ArchiveEntry{
		Headline:      article.RewrittenTitle,
		OriginalTitle: article.Candidate.Title,
		SourceURL:     article.Candidate.Link,
		PublishedAt:   article.Candidate.PublishedAt,
	}
	if err := s.archive.Append(ctx, entry); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.pending.UpdateStatus(ctx, id, model.PendingStatusApproved, now); err != nil {
		return nil, err
	}

	article.Status = model.PendingStatusApproved
	article.UpdatedAt = now

	s.logger.Info("記事を承認しました",
		slog.String("id", id),
		slog.String("headline", article.RewrittenTitle),
	)

	return article, nil
}

// Deny は記事を却下する。アーカイブには追記しないため、
// 同じ記事が別の取得元から再び候補になることは妨げない。
func (s *Service) Deny(ctx context.Context, id string) (*model.PendingArticle, error) {
	article, err := s.findReviewable(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.pending.UpdateStatus(ctx, id, model.PendingStatusDenied, now); err != nil {
		return nil, err
	}

	article.Status = model.PendingStatusDenied
	article.UpdatedAt = now

	s.logger.Info("記事を却下しました", slog.String("id", id))

	return article, nil
}

// findReviewable はレビュー操作可能な記事を取得する。
// 未検出とレビュー済みはAPIErrorとして返す。
func (s *Service) findReviewable(ctx context.Context, id string) (*model.PendingArticle, error) {
	article, err := s.pending.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, model.NewPendingNotFoundError(id)
	}
	if article.Status != model.PendingStatusPending {
		return nil, model.NewAlreadyReviewedError(id)
	}
	return article, nil
}

// summaryFallback はリライト失敗時の要約を本文から切り出す。
const summaryFallbackLen = 280

func summaryFallback(description string) string {
	runes := []rune(description)
	if len(runes) <= summaryFallbackLen {
		return description
	}
	return string(runes[:summaryFallbackLen])
}
