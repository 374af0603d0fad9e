package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/harenews/internal/model"
)

const (
	// defaultNewsAPIEndpoint はNewsAPIの記事検索エンドポイント。
	defaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"
	// newsAPIPageSize は1クエリあたりの取得件数。
	newsAPIPageSize = 50
	// newsAPIMaxResponseSize はレスポンスボディの最大読み取りサイズ（2MB）。
	newsAPIMaxResponseSize = 2 * 1024 * 1024
)

// NewsAPISource は検索API1クエリ分を取得元として扱う。
// 複数クエリが同一APIキーを共有するため、レートリミッターも共有で渡す。
type NewsAPISource struct {
	endpoint string // テスト用にエンドポイントを差し替え可能
	apiKey   string
	query    string
	meta     model.SourceMeta
	client   *http.Client
	limiter  *rate.Limiter
}

// NewNewsAPISource はNewsAPISourceの新しいインスタンスを生成する。
// limiterがnilの場合はレート制限なしで動作する。
func NewNewsAPISource(
	apiKey string,
	query string,
	meta model.SourceMeta,
	client *http.Client,
	limiter *rate.Limiter,
) *NewsAPISource {
	return &NewsAPISource{
		endpoint: defaultNewsAPIEndpoint,
		apiKey:   apiKey,
		query:    query,
		meta:     meta,
		client:   client,
		limiter:  limiter,
	}
}

// NewNewsAPILimiter は検索API呼び出し用の共有レートリミッターを生成する。
// 無料プランのレート上限に合わせ、1秒1リクエスト・バースト2で制限する。
func NewNewsAPILimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Second), 2)
}

// newsAPIResponse は検索APIのレスポンス形式。
type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string     `json:"author"`
		Title       string     `json:"title"`
		Description string     `json:"description"`
		URL         string     `json:"url"`
		PublishedAt *time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Meta は取得元の表示名と設定カテゴリを返す。
func (s *NewsAPISource) Meta() model.SourceMeta {
	return s.meta
}

// Fetch は検索APIを呼び出し、クエリに一致する記事をRawItemとして返す。
// レートリミッターの待機はコンテキストのキャンセルで中断される。
// 失敗は取得元名を含むSOURCE_FETCH_FAILEDのAPIErrorとして返す。
func (s *NewsAPISource) Fetch(ctx context.Context) ([]model.RawItem, error) {
	items, err := s.fetch(ctx)
	if err != nil {
		return nil, model.NewSourceFetchFailedError(s.meta.Name, err.Error())
	}
	return items, nil
}

func (s *NewsAPISource) fetch(ctx context.Context) ([]model.RawItem, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("レート制限待機が中断されました: %w", err)
		}
	}

	reqURL, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗: %w", err)
	}

	q := reqURL.Query()
	q.Set("q", s.query)
	q.Set("pageSize", fmt.Sprintf("%d", newsAPIPageSize))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, newsAPIMaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("検索APIがステータス %d を返しました", resp.StatusCode)
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗: %w", err)
	}

	// HTTP 200でもボディ側でエラーを返すAPI仕様のため両方を確認する
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("検索APIがエラーを返しました: %s (%s)", parsed.Message, parsed.Code)
	}

	out := make([]model.RawItem, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		out = append(out, model.RawItem{
			Title:       a.Title,
			Link:        a.URL,
			Description: a.Description,
			Author:      a.Author,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	return out, nil
}

var _ Source = (*NewsAPISource)(nil)
