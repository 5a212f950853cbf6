// Package client implements the external service ports: the OpenRouter
// generation client and the ad platform adapters. Adapters without
// credentials run in simulation mode.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"adpilot/internal/config/configs"
	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

// OpenRouter generates ad copy and image URLs through the OpenRouter
// chat completions API.
type OpenRouter struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewOpenRouter(cfg configs.Clients) *OpenRouter {
	return &OpenRouter{
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: strings.TrimSuffix(cfg.OpenRouterBaseURL, "/"),
		apiKey:  cfg.OpenRouterAPIKey,
		model:   cfg.OpenRouterModel,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateCopy asks the model for ad copy as a JSON object. The brief's
// prior headline, when present, steers the model away from a rejected
// angle.
func (o *OpenRouter) GenerateCopy(ctx context.Context, brief port.CopyBrief) (*port.AdCopy, error) {
	prompt := fmt.Sprintf(`Write ad copy for %q on %s. Objective: %s. Audience interests: %s.
Respond with a JSON object: {"headline": ..., "description": ..., "call_to_action": ...}.
Headline under 120 characters, description under 500.`,
		brief.ProductName, brief.Platform, brief.Objective, strings.Join(brief.Audience.Interests, ", "))
	if brief.PriorHeadline != "" {
		prompt += fmt.Sprintf("\nA previous headline %q was rejected; take a different angle.", brief.PriorHeadline)
	}

	content, err := o.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out struct {
		Headline     string `json:"headline"`
		Description  string `json:"description"`
		CallToAction string `json:"call_to_action"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &out); err != nil {
		return nil, domain.Terminal("parse copy", fmt.Errorf("model returned unparseable copy: %w", err))
	}
	return &port.AdCopy{
		Headline:     out.Headline,
		Description:  out.Description,
		CallToAction: out.CallToAction,
	}, nil
}

// GenerateImage returns a hosted image URL for the prompt. OpenRouter
// proxies image models the same way as chat models.
func (o *OpenRouter) GenerateImage(ctx context.Context, prompt string) (string, error) {
	content, err := o.chat(ctx, "Generate an advertising image and return only its URL. "+prompt)
	if err != nil {
		return "", err
	}
	url := strings.TrimSpace(content)
	if !strings.HasPrefix(url, "http") {
		return "", domain.Retryable("generate image", fmt.Errorf("model returned no url"))
	}
	return url, nil
}

func (o *OpenRouter) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     o.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 400,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", domain.Retryable("openrouter", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.Terminal("openrouter", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", domain.Retryable("openrouter", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.Retryable("openrouter", err)
	}
	if len(out.Choices) == 0 {
		return "", domain.Retryable("openrouter", fmt.Errorf("empty completion"))
	}
	return out.Choices[0].Message.Content, nil
}

// extractJSON trims markdown fences models like to wrap JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}
