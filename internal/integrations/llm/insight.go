// Package llm asks Anthropic for a short commentary on draw statistics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"lottobot/internal/httpx"
	"lottobot/internal/logger"
	"lottobot/internal/stats"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	maxInsightTokens      = 1024
	maxQuestionChars      = 500
	promptTopNumbers      = 10
)

var ErrDisabled = errors.New("insight is disabled: anthropic_api_key is not set")

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

type Insight struct {
	Text  string
	Model string
	Usage Usage
}

type completeFunc func(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, Usage, error)

type Client struct {
	apiKey   string
	model    string
	complete completeFunc
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Client{apiKey: apiKey, model: model, complete: callAnthropic}
}

func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// Insight returns a commentary on st. question is optional free text from the
// user and is truncated before it reaches the prompt.
func (c *Client) Insight(ctx context.Context, st stats.Statistics, question string) (Insight, error) {
	if !c.Enabled() {
		return Insight{}, ErrDisabled
	}
	if st.DrawCount == 0 {
		return Insight{}, errors.New("no draws to comment on")
	}
	systemPrompt, userPrompt := buildInsightPrompts(st, question)
	text, usage, err := c.complete(ctx, c.apiKey, c.model, systemPrompt, userPrompt)
	if err != nil {
		return Insight{}, err
	}
	return Insight{Text: strings.TrimSpace(text), Model: c.model, Usage: usage}, nil
}

func buildInsightPrompts(st stats.Statistics, question string) (string, string) {
	systemPrompt := strings.Join([]string{
		"You comment on historical statistics of a 6/45 lottery for a Slack channel.",
		"Every draw is independent and uniformly random. Past frequencies do not predict future draws.",
		"Never recommend numbers, never claim any combination is more likely, and say so if asked.",
		"Answer in at most 6 short sentences of plain Slack mrkdwn. No headings, no tables.",
	}, "\n")

	var b strings.Builder
	fmt.Fprintf(&b, "Window: %d draws", st.DrawCount)
	if st.LatestRound > 0 {
		fmt.Fprintf(&b, " up to round %d", st.LatestRound)
	}
	fmt.Fprintf(&b, ". Counts use %d numbers per draw.\n", st.CountBasis)
	fmt.Fprintf(&b, "Expected count per number: %.1f\n", float64(st.Total())/45)

	b.WriteString("Most frequent:")
	for i, n := range st.Numbers {
		if i == promptTopNumbers {
			break
		}
		fmt.Fprintf(&b, " %d(%d)", n.Number, n.Count)
	}
	b.WriteString("\nLeast frequent:")
	for i := len(st.Numbers) - 1; i >= 0 && i >= len(st.Numbers)-promptTopNumbers; i-- {
		fmt.Fprintf(&b, " %d(%d)", st.Numbers[i].Number, st.Numbers[i].Count)
	}
	fmt.Fprintf(&b, "\nHot in last %d draws: %s\n", st.RecentWindow, joinInts(st.Hot(0)))
	fmt.Fprintf(&b, "Absent in last %d draws: %s\n", st.RecentWindow, joinInts(st.Cold(0)))
	fmt.Fprintf(&b, "Odd/even totals: %d/%d\n", st.OddTotal, st.EvenTotal)
	b.WriteString("Sum ranges:")
	for _, bucket := range st.SumRanges {
		fmt.Fprintf(&b, " %s=%d", bucket.Label, bucket.Count)
	}
	b.WriteString("\n")

	question = strings.TrimSpace(question)
	if r := []rune(question); len(r) > maxQuestionChars {
		question = string(r[:maxQuestionChars])
	}
	if question != "" {
		fmt.Fprintf(&b, "\nUser question: %s\n", question)
	} else {
		b.WriteString("\nGive a brief, neutral commentary on these numbers.\n")
	}
	return systemPrompt, b.String()
}

func joinInts(nums []int) string {
	if len(nums) == 0 {
		return "none"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, Usage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey), option.WithHTTPClient(httpx.ExternalClient()))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxInsightTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		logger.Error("anthropic request failed", zap.String("model", model), zap.Error(err))
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			logger.Info("anthropic response",
				zap.Int("size", len(block.Text)),
				zap.Int64("tokens_in", usage.InputTokens),
				zap.Int64("tokens_out", usage.OutputTokens),
				zap.Int64("cache_read", usage.CacheReadInputTokens))
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
