// Package summary enriches saved pages with an LLM summary in the background.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ibeckermayer/x2notion/internal/store"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"

	systemPrompt = "You are a concise summarization assistant. Summarize the given tweet text in a few sentences, " +
		"focusing on the main points. If the text is too short, just return the original text."
)

// Summarizer produces a short summary of post text. An empty summary is valid.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ChatClient is the subset of the OpenAI client used here
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// DeepSeek summarizes through DeepSeek's OpenAI-compatible chat API
type DeepSeek struct {
	client    ChatClient
	model     string
	snapshots *store.Snapshots
}

// NewDeepSeek creates a summarizer. An empty baseURL or model selects the DeepSeek defaults.
func NewDeepSeek(apiKey, baseURL, model string) (*DeepSeek, error) {
	if apiKey == "" {
		return nil, errors.New("DeepSeek API key not configured")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = DefaultBaseURL
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &DeepSeek{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// NewWithClient wraps an existing chat client
func NewWithClient(client ChatClient, model string) *DeepSeek {
	return &DeepSeek{client: client, model: model}
}

// WithSnapshots keeps every prompt/response pair under the summary step
func (d *DeepSeek) WithSnapshots(s *store.Snapshots) *DeepSeek {
	d.snapshots = s
	return d
}

// Summarize asks the model for a summary of text
func (d *DeepSeek) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following tweet: %q", text)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})

	var summary string
	if err == nil && len(resp.Choices) > 0 {
		summary = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	d.record(prompt, summary, err)

	if err != nil {
		return "", fmt.Errorf("failed to call DeepSeek API: %w", err)
	}
	return summary, nil
}

func (d *DeepSeek) record(prompt, response string, callErr error) {
	if d.snapshots == nil {
		return
	}
	exchange := store.SummaryExchange{
		Timestamp: time.Now(),
		Model:     d.model,
		Prompt:    prompt,
		Response:  response,
	}
	if callErr != nil {
		exchange.Error = callErr.Error()
	}
	if path, err := store.SaveJSON(d.snapshots, store.StepSummary, exchange); err != nil {
		log.Warn().Err(err).Msg("failed to cache summary exchange")
	} else {
		log.Debug().Str("path", path).Msg("cached summary exchange")
	}
}
