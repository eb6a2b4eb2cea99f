package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/songzhibin97/prospector/internal/ai"
	"github.com/songzhibin97/prospector/internal/models"
)

const systemPrompt = "You are a mortgage loan officer writing to crypto holders. " +
	"Write short, factual, compliant messages. Never promise approval, never quote rates, " +
	"and never ask for private keys or seed phrases."

// OutreachWriter implements ai.OutreachWriter using any OpenAI-compatible
// chat completion API (OpenAI, DeepSeek).
type OutreachWriter struct {
	client *openai.Client
	model  string
}

var _ ai.OutreachWriter = (*OutreachWriter)(nil)

// NewOutreachWriter creates a writer. An empty baseURL uses the OpenAI API.
func NewOutreachWriter(apiKey, baseURL, model string) *OutreachWriter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini // 默认使用较便宜的模型
	}
	return &OutreachWriter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// DraftOutreach implements the ai.OutreachWriter interface
func (w *OutreachWriter) DraftOutreach(ctx context.Context, m *models.WalletMetrics, s *models.MortgageQualificationScore) (string, error) {
	resp, err := w.createChatCompletion(ctx, buildPrompt(m, s))
	if err != nil {
		return "", fmt.Errorf("failed to draft outreach: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func buildPrompt(m *models.WalletMetrics, s *models.MortgageQualificationScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a first-contact message (under 120 words) for the holder of wallet %s.\n", m.Address)
	fmt.Fprintf(&b, "Risk tier: %s\nOutreach priority: %s\n", s.RiskTier, s.OutreachPriority)
	fmt.Fprintf(&b, "Wallet behavior: %s, age %d days, estimated holdings $%.0f\n",
		m.BehaviorType, m.WalletAgeDays, m.TotalValueUSD)
	fmt.Fprintf(&b, "Indicative maximum mortgage: $%.0f at up to %.0f%% LTV\n", s.MaxMortgageAmount, s.RecommendedLTV)
	if len(s.PositiveSignals) > 0 {
		fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(s.PositiveSignals, "; "))
	}
	if len(s.Recommendations) > 0 {
		fmt.Fprintf(&b, "Suggested next step: %s\n", s.Recommendations[0])
	}
	b.WriteString("Channel: on-chain message, so do not include links or attachments.")
	return b.String()
}

// createChatCompletion is a helper function to make chat completion calls
func (w *OutreachWriter) createChatCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := w.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: w.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3, // 使用较低的temperature以获得更稳定的输出
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
