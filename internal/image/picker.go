// Package image は承認待ち記事に添えるアイキャッチ画像の選定を提供する。
package image

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/harenews/internal/model"
)

// maxPageSize は記事ページの最大読み取りサイズ（512KB）。
// og:imageはhead内にあるため全文は不要。
const maxPageSize = 512 * 1024

// userAgent は記事ページ取得で使用するUser-Agentヘッダ。
const userAgent = "Harenews/1.0 News Pipeline"

// URLValidator は取得前のURL検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Picker は記事ページのog:imageを取得し、失敗時はカテゴリ別の
// フォールバック画像プールからランダムに選ぶ。
// 選定失敗は記事登録を妨げないため、Pickはエラーを返さない。
type Picker struct {
	client    *http.Client
	validator URLValidator
	fallbacks map[model.Category][]string
	logger    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker はPickerを生成する。clientはSSRF防止付きを渡すこと。
// rngはフォールバック選定の乱数源。nilの場合は現在時刻でシードする。
func NewPicker(client *http.Client, validator URLValidator, fallbacks map[model.Category][]string, logger *slog.Logger, rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Picker{
		client:    client,
		validator: validator,
		fallbacks: fallbacks,
		logger:    logger,
		rng:       rng,
	}
}

// Pick は候補記事のアイキャッチ画像URLを返す。
// 記事ページのog:image取得を試み、失敗時はフォールバック画像を選ぶ。
// フォールバックも存在しない場合は空文字列を返す。
func (p *Picker) Pick(ctx context.Context, c model.Candidate) string {
	if imageURL := p.fetchOGImage(ctx, c.Link); imageURL != "" {
		return imageURL
	}
	return p.pickFallback(c.Category)
}

// fetchOGImage は記事ページからog:image相当のURLを取得する。
// 失敗時は空文字列を返す。
func (p *Picker) fetchOGImage(ctx context.Context, pageURL string) string {
	if pageURL == "" {
		return ""
	}

	if p.validator != nil {
		if err := p.validator.ValidateURL(pageURL); err != nil {
			p.logger.Warn("画像取得: URL検証に失敗しました",
				slog.String("url", pageURL),
				slog.String("error", err.Error()),
			)
			return ""
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, */*")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("画像取得: 記事ページの取得に失敗しました",
			slog.String("url", pageURL),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	return extractImageMeta(io.LimitReader(resp.Body, maxPageSize))
}

// metaImageProperties は優先順に検査するメタタグのプロパティ名。
var metaImageProperties = []string{"og:image", "twitter:image"}

// extractImageMeta はHTMLのheadからog:image / twitter:imageのURLを抽出する。
// og:imageを優先し、見つからなければtwitter:imageを返す。
func extractImageMeta(r io.Reader) string {
	found := make(map[string]string)

	tokenizer := html.NewTokenizer(r)
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return firstImageMeta(found)

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return firstImageMeta(found)
			}
			if tagName != "meta" || !hasAttr {
				continue
			}

			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "property", "name":
					property = strings.ToLower(string(val))
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}

			if content == "" {
				continue
			}
			for _, want := range metaImageProperties {
				if property == want {
					found[want] = content
				}
			}
		}
	}
}

// firstImageMeta は優先順位に従って最初に見つかった画像URLを返す。
func firstImageMeta(found map[string]string) string {
	for _, prop := range metaImageProperties {
		if u := found[prop]; u != "" {
			return u
		}
	}
	return ""
}

// pickFallback はカテゴリ別のフォールバック画像プールからランダムに選ぶ。
// カテゴリのプールが空の場合はgeneralのプールを使う。
func (p *Picker) pickFallback(category model.Category) string {
	pool := p.fallbacks[category]
	if len(pool) == 0 {
		pool = p.fallbacks[model.CategoryGeneral]
	}
	if len(pool) == 0 {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.Intn(len(pool))]
}
