package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/harenews/internal/model"
)

// RSSSource はRSS/Atomフィード1本を取得元として扱う。
type RSSSource struct {
	feedURL     string
	meta        model.SourceMeta
	client      *http.Client
	ssrfGuard   SSRFValidator
	maxBodySize int64
}

// NewRSSSource はRSSSourceの新しいインスタンスを生成する。
// clientにはSSRF防止付きのHTTPクライアントを渡すこと。
func NewRSSSource(
	feedURL string,
	meta model.SourceMeta,
	client *http.Client,
	ssrfGuard SSRFValidator,
	maxBodySize int64,
) *RSSSource {
	return &RSSSource{
		feedURL:     feedURL,
		meta:        meta,
		client:      client,
		ssrfGuard:   ssrfGuard,
		maxBodySize: maxBodySize,
	}
}

// Meta は取得元の表示名と設定カテゴリを返す。
func (s *RSSSource) Meta() model.SourceMeta {
	return s.meta
}

// Fetch はフィードをフェッチしてパースし、RawItemのリストを返す。
// 失敗は取得元名を含むSOURCE_FETCH_FAILEDのAPIErrorとして返す。
func (s *RSSSource) Fetch(ctx context.Context) ([]model.RawItem, error) {
	items, err := s.fetch(ctx)
	if err != nil {
		return nil, model.NewSourceFetchFailedError(s.meta.Name, err.Error())
	}
	return items, nil
}

func (s *RSSSource) fetch(ctx context.Context) ([]model.RawItem, error) {
	if s.ssrfGuard != nil {
		if err := s.ssrfGuard.ValidateURL(s.feedURL); err != nil {
			return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("フィードがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	return convertFeedItems(feed.Items), nil
}

// convertFeedItems はgofeedの記事をRawItemに変換する。
func convertFeedItems(items []*gofeed.Item) []model.RawItem {
	out := make([]model.RawItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		raw := model.RawItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		}

		// 説明が空の場合は本文を代用する
		if raw.Description == "" && item.Content != "" {
			raw.Description = item.Content
		}

		if item.Author != nil {
			raw.Author = item.Author.Name
		}
		if raw.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
			raw.Author = item.Authors[0].Name
		}

		// 公開日時はpublished優先、なければupdatedを代用
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			raw.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			raw.PublishedAt = &t
		}

		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if raw.Link == "" && item.GUID != "" &&
			(strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			raw.Link = item.GUID
		}

		out = append(out, raw)
	}

	return out
}

var _ Source = (*RSSSource)(nil)
