package curation

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hitoshi/harenews/internal/model"
)

// fakeChatCompleter は固定応答を返すLLMクライアントの偽実装。
type fakeChatCompleter struct {
	response string
	err      error
	lastReq  openai.ChatCompletionRequest
}

func (f *fakeChatCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
	}, nil
}

func testCandidate() model.Candidate {
	return model.Candidate{
		ID:          "cand-1",
		Title:       "Coral reef recovery confirmed by scientists",
		Description: "A long-term study shows reefs rebounding.",
		SourceName:  "Ocean Daily",
		Category:    model.CategoryEnvironment,
	}
}

// 期待フォーマットの応答が正しくパースされることを検証
func TestRewriter_Rewrite_ParsesWellFormedResponse(t *testing.T) {
	fake := &fakeChatCompleter{
		response: "HEADLINE: Coral Reefs Are Bouncing Back\nSUMMARY: Scientists confirm a steady recovery across reef systems.\nCONFIDENCE: verified",
	}
	rw := NewRewriterWithClient(fake, "gpt-4o-mini")

	result, err := rw.Rewrite(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	if result.Headline != "Coral Reefs Are Bouncing Back" {
		t.Errorf("Headline = %q", result.Headline)
	}
	if result.Summary != "Scientists confirm a steady recovery across reef systems." {
		t.Errorf("Summary = %q", result.Summary)
	}
	if result.Confidence != "verified" {
		t.Errorf("Confidence = %q, want verified", result.Confidence)
	}

	if fake.lastReq.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", fake.lastReq.Model)
	}
}

// 未知の確信度はunverifiedにフォールバックすることを検証
func TestRewriter_Rewrite_UnknownConfidence_FallsBack(t *testing.T) {
	fake := &fakeChatCompleter{
		response: "HEADLINE: A Headline\nSUMMARY: A summary.\nCONFIDENCE: definitely",
	}
	rw := NewRewriterWithClient(fake, "gpt-4o-mini")

	result, err := rw.Rewrite(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if result.Confidence != "unverified" {
		t.Errorf("Confidence = %q, want unverified", result.Confidence)
	}
}

// HEADLINEを欠く応答はエラーになることを検証
func TestRewriter_Rewrite_MissingHeadline_ReturnsError(t *testing.T) {
	fake := &fakeChatCompleter{
		response: "SUMMARY: Only a summary here.\nCONFIDENCE: plausible",
	}
	rw := NewRewriterWithClient(fake, "gpt-4o-mini")

	if _, err := rw.Rewrite(context.Background(), testCandidate()); err == nil {
		t.Error("expected parse error, got nil")
	}
}

// API呼び出し失敗はREWRITE_FAILEDの統一エラーになることを検証
func TestRewriter_Rewrite_APIError_ReturnsRewriteFailed(t *testing.T) {
	fake := &fakeChatCompleter{err: errors.New("rate limited")}
	rw := NewRewriterWithClient(fake, "gpt-4o-mini")

	_, err := rw.Rewrite(context.Background(), testCandidate())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeRewriteFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeRewriteFailed)
	}
}

// 大文字混じりの確信度も受理されることを検証
func TestParseRewriteResponse_NormalizesConfidenceCase(t *testing.T) {
	result := parseRewriteResponse("HEADLINE: H\nSUMMARY: S\nCONFIDENCE: Plausible")

	if result.Confidence != "plausible" {
		t.Errorf("Confidence = %q, want plausible", result.Confidence)
	}
}

// 余分な行が混ざった応答でもプレフィックス行だけが拾われることを検証
func TestParseRewriteResponse_IgnoresExtraLines(t *testing.T) {
	response := "Sure, here is the rewrite:\n\nHEADLINE: Bright Headline\nSUMMARY: Clear summary.\nCONFIDENCE: verified\n\nHope this helps!"
	result := parseRewriteResponse(response)

	if result.Headline != "Bright Headline" {
		t.Errorf("Headline = %q", result.Headline)
	}
	if result.Confidence != "verified" {
		t.Errorf("Confidence = %q, want verified", result.Confidence)
	}
}
