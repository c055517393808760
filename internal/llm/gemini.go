package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nholloway/solace-agent/internal/httpkit"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Google Generative Language REST API.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a client for the Gemini generateContent API.
func NewGeminiClient(baseURL, apiKey, model string, logger *slog.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(30*time.Second),
			httpkit.WithRetry(1, 500*time.Millisecond),
			httpkit.WithLogger(logger),
		),
		logger: logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends a generateContent request and returns the model text.
// Gemini carries the system prompt separately from the turn history, so
// system messages are folded into systemInstruction and assistant turns
// become role "model".
func (c *GeminiClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := geminiRequest{}
	reqBody.GenerationConfig.Temperature = opts.Temperature
	reqBody.GenerationConfig.MaxOutputTokens = opts.MaxTokens

	var system []string
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			reqBody.Contents = append(reqBody.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: m.Content}},
			})
		default:
			reqBody.Contents = append(reqBody.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}
	if len(system) > 0 {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}},
		}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransportError("gemini", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 2048)
		return "", &APIError{
			Kind:     classifyStatus(resp.StatusCode),
			Provider: "gemini",
			Status:   resp.StatusCode,
			Message:  body,
		}
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &APIError{Kind: KindProvider, Provider: "gemini", Message: fmt.Sprintf("decode response: %v", err)}
	}
	if out.Error != nil {
		return "", &APIError{Kind: KindProvider, Provider: "gemini", Message: out.Error.Message}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &APIError{Kind: KindProvider, Provider: "gemini", Message: "no candidates in response"}
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}

	c.logger.Debug("completion received",
		"provider", "gemini",
		"model", c.model,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return b.String(), nil
}
