package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coffeebudget/recurrent/internal/common"
)

// anthropicClient implements the Client interface for the Anthropic API.
type anthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	maxTokens  int
}

// ClientConfig holds configuration for the external classifier client.
type ClientConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewAnthropicClient creates a new Anthropic API client.
func NewAnthropicClient(cfg ClientConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, common.ErrNoAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &anthropicClient{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// ClassifyPatterns sends one batch of pattern classification requests.
func (c *anthropicClient) ClassifyPatterns(ctx context.Context, requests []Request) (Response, error) {
	systemPrompt := "You are a financial pattern classifier. Respond only with the JSON array requested, no prose."

	requestBody := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": buildBatchPrompt(requests),
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Content) == 0 {
		return Response{}, fmt.Errorf("no content in response")
	}

	results, err := parseResults(response.Content[0].Text, requests)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Results:    results,
		TokensUsed: response.Usage.InputTokens + response.Usage.OutputTokens,
	}, nil
}

// buildBatchPrompt renders one prompt covering every pattern in the batch.
func buildBatchPrompt(requests []Request) string {
	var b strings.Builder

	b.WriteString(`Classify each recurring financial pattern below.

For every pattern respond with one JSON object carrying exactly these fields:
  patternId (string, copied from the input)
  expenseType (one of: subscription, utility, insurance, housing, loan, salary, tax, other_fixed)
  isEssential (boolean: true for necessities such as utilities, insurance, housing)
  suggestedName (short human-readable name for a budget entry)
  monthlyContribution (number: the pattern's cost normalized to one month, always positive)
  confidence (number 0-100)
  reasoning (one short sentence)

Respond with ONLY a JSON array of these objects, one per pattern, in input order.

Patterns:
`)

	for i, req := range requests {
		fmt.Fprintf(&b, "%d. patternId: %s\n   merchant: %s\n   category: %s\n   description: %s\n   averageAmount: %.2f\n   frequency: %s\n   occurrences: %d\n",
			i+1, req.PatternID, req.Merchant, req.Category, req.Description,
			req.AverageAmount, req.Frequency, req.Occurrences)
	}

	return b.String()
}

// parseResults extracts classifications from the model output. Fields are
// pulled individually so one malformed value does not reject the batch.
func parseResults(content string, requests []Request) ([]RawResult, error) {
	content = cleanMarkdownWrapper(content)

	var items []map[string]any
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}

	results := make([]RawResult, 0, len(items))
	for i, item := range items {
		r := RawResult{
			PatternID:     stringField(item, "patternId"),
			ExpenseType:   stringField(item, "expenseType"),
			SuggestedName: stringField(item, "suggestedName"),
			Reasoning:     stringField(item, "reasoning"),
			IsEssential:   boolField(item, "isEssential"),
		}

		// Fall back to positional matching when the model dropped the id.
		if r.PatternID == "" && i < len(requests) {
			r.PatternID = requests[i].PatternID
		}

		r.MonthlyContribution, r.ContributionValid = numberField(item, "monthlyContribution")
		r.Confidence, _ = numberField(item, "confidence")

		results = append(results, r)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no classifications found in response")
	}

	return results, nil
}

func stringField(item map[string]any, key string) string {
	if v, ok := item[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolField(item map[string]any, key string) bool {
	switch v := item[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

func numberField(item map[string]any, key string) (float64, bool) {
	switch v := item[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// cleanMarkdownWrapper strips a ```json fence if the model added one.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
