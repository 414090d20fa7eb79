package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// SearchClient issues a prompt to the external text-generation service and
// returns its raw text. It performs no parsing; callers own all extraction.
type SearchClient interface {
	// Search generates free-form text for the prompt, bounded by maxTokens.
	Search(ctx context.Context, prompt string, maxTokens int, tier ModelTier) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// UpstreamError represents a transport or envelope failure reaching the
// external text-generation service. Distinct from parse errors: the call
// itself never produced usable text.
type UpstreamError struct {
	Message string
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream API error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream API error: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// GeminiClient implements SearchClient over Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini-backed search client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &UpstreamError{Message: "API key is required"}
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &UpstreamError{Message: "failed to create Gemini client", Cause: err}
	}

	return &GeminiClient{client: client, config: config}, nil
}

// Search generates text for the prompt with bounded retry. Each failed
// attempt backs off exponentially from RetryBaseDelay; context cancellation
// aborts the loop between attempts.
func (c *GeminiClient) Search(ctx context.Context, prompt string, maxTokens int, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", &UpstreamError{Message: fmt.Sprintf("no model configured for tier %s", tier)}
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	attempts := c.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := c.config.RetryBaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			text, extractErr := extractTextFromResponse(resp)
			if extractErr == nil {
				return text, nil
			}
			lastErr = extractErr
		} else {
			lastErr = err
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", &UpstreamError{Message: "search canceled", Cause: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", &UpstreamError{
		Message: fmt.Sprintf("search failed after %d attempts", attempts),
		Cause:   lastErr,
	}
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
