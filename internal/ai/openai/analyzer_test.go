package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/prospector/internal/models"
)

var apiKey = os.Getenv("OPENAI_API_KEY")

func testInputs() (*models.WalletMetrics, *models.MortgageQualificationScore) {
	m := &models.WalletMetrics{
		Address:       "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
		TotalValueUSD: 250_000,
		WalletAgeDays: 900,
		BehaviorType:  models.BehaviorHodler,
	}
	s := &models.MortgageQualificationScore{
		WalletAddress:     m.Address,
		RiskTier:          models.RiskTierPrime,
		OutreachPriority:  models.PriorityHigh,
		MaxMortgageAmount: 125_000,
		RecommendedLTV:    85,
		PositiveSignals:   []string{"Long-term holder"},
		Recommendations:   []string{"Schedule an introductory call"},
	}
	return m, s
}

func setupTestServer(t *testing.T, response interface{}) (*httptest.Server, *OutreachWriter) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))

	return server, NewOutreachWriter("test-key", server.URL+"/v1", "deepseek-chat")
}

func TestOutreachWriter_DraftOutreach(t *testing.T) {
	server, writer := setupTestServer(t, map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": "  Hello, we noticed your long-term holdings.  "}},
		},
	})
	defer server.Close()

	m, s := testInputs()
	draft, err := writer.DraftOutreach(context.Background(), m, s)
	require.NoError(t, err)
	assert.Equal(t, "Hello, we noticed your long-term holdings.", draft)
}

func TestOutreachWriter_NoChoices(t *testing.T) {
	server, writer := setupTestServer(t, map[string]interface{}{"choices": []interface{}{}})
	defer server.Close()

	m, s := testInputs()
	_, err := writer.DraftOutreach(context.Background(), m, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response from openai")
}

func TestNewOutreachWriter_DefaultModel(t *testing.T) {
	w := NewOutreachWriter("key", "", "")
	assert.Equal(t, openai.GPT4oMini, w.model)
}

func TestBuildPrompt(t *testing.T) {
	m, s := testInputs()
	prompt := buildPrompt(m, s)

	assert.Contains(t, prompt, "Risk tier: prime")
	assert.Contains(t, prompt, "$125000 at up to 85% LTV")
	assert.Contains(t, prompt, "Strengths: Long-term holder")
	assert.Contains(t, prompt, "Suggested next step: Schedule an introductory call")
}

func TestOutreachWriter_Live(t *testing.T) {
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
	m, s := testInputs()
	draft, err := NewOutreachWriter(apiKey, "", "").DraftOutreach(context.Background(), m, s)
	assert.NoError(t, err)
	assert.NotEmpty(t, draft)
}
