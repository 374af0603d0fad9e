// Package curation は記事のリライトとレビューフローを提供する。
package curation

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hitoshi/harenews/internal/model"
)

// RewriteResult はリライト処理の結果を表す。
type RewriteResult struct {
	Headline   string
	Summary    string
	Confidence string // verified / plausible / unverified
}

// validConfidences はLLMが返せる確信度の集合。
var validConfidences = map[string]struct{}{
	"verified":   {},
	"plausible":  {},
	"unverified": {},
}

// chatCompleter はOpenAIクライアントのうちリライトに必要な操作。
// テストでは偽実装に差し替える。
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Rewriter はLLMを使って記事の見出しと要約を明るいトーンに書き直す。
type Rewriter struct {
	client chatCompleter
	model  string
}

// NewRewriter はOpenAI APIを使用するRewriterを生成する。
func NewRewriter(apiKey, model string) *Rewriter {
	return &Rewriter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewRewriterWithClient はクライアントを注入してRewriterを生成する。テスト用。
func NewRewriterWithClient(client chatCompleter, model string) *Rewriter {
	return &Rewriter{client: client, model: model}
}

// rewritePrompt はリライト指示のテンプレート。
// 応答の行頭プレフィックスでパースするため、フォーマットを厳密に指定する。
const rewritePrompt = `You are an editor for a positive news digest. Rewrite the
following article title and description into an upbeat, factual headline and a
short summary (2-3 sentences). Do not invent facts. Also rate how confident you
are that the story is verifiable: verified, plausible, or unverified.

Format your response exactly as:
HEADLINE: <rewritten headline>
SUMMARY: <rewritten summary>
CONFIDENCE: <verified|plausible|unverified>

Source: %s
Title: %s
Description:
%s`

// maxDescriptionLen はプロンプトに含める本文の最大文字数。
const maxDescriptionLen = 4000

// Rewrite は候補記事の見出しと要約をリライトする。
// LLM応答が期待フォーマットでない場合はエラーを返す。
func (rw *Rewriter) Rewrite(ctx context.Context, c model.Candidate) (*RewriteResult, error) {
	description := c.Description
	if len(description) > maxDescriptionLen {
		description = description[:maxDescriptionLen]
	}

	prompt := fmt.Sprintf(rewritePrompt, c.SourceName, c.Title, description)

	resp, err := rw.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     rw.model,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, model.NewRewriteFailedError(err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, model.NewRewriteFailedError("APIが空の応答を返しました")
	}

	result := parseRewriteResponse(resp.Choices[0].Message.Content)
	if result.Headline == "" || result.Summary == "" {
		return nil, model.NewRewriteFailedError("応答が期待フォーマットではありません")
	}

	return result, nil
}

// parseRewriteResponse はLLM応答を行頭プレフィックスでパースする。
// 確信度が未知の値の場合はunverifiedにフォールバックする。
func parseRewriteResponse(response string) *RewriteResult {
	result := &RewriteResult{}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "HEADLINE:"):
			result.Headline = strings.TrimSpace(strings.TrimPrefix(line, "HEADLINE:"))
		case strings.HasPrefix(line, "SUMMARY:"):
			result.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			result.Confidence = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")))
		}
	}

	if _, ok := validConfidences[result.Confidence]; !ok {
		result.Confidence = "unverified"
	}

	return result
}
