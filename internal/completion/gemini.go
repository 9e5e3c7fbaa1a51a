package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiREST calls the generateContent endpoint directly over HTTP. It is the
// fallback when the SDK client is unusable or failed.
type GeminiREST struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type RESTOption func(*GeminiREST)

func WithRESTHTTPClient(c *http.Client) RESTOption {
	return func(g *GeminiREST) {
		g.httpClient = c
	}
}

func NewGeminiREST(apiKey, baseURL, model string, opts ...RESTOption) *GeminiREST {
	g := &GeminiREST{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimPrefix(strings.TrimSpace(model), "models/"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (g *GeminiREST) Name() string { return SourceGeminiREST }

func (g *GeminiREST) Available() bool {
	return g.httpClient != nil && g.baseURL != "" && g.apiKey != "" && g.model != ""
}

func (g *GeminiREST) endpoint() string {
	return g.baseURL + "/models/" + url.PathEscape(g.model) + ":generateContent"
}

func (g *GeminiREST) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Available() {
		return "", ErrUnavailable
	}
	body, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", upstreamError(SourceGeminiREST, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", upstreamError(SourceGeminiREST, resp.StatusCode, errors.New(strings.TrimSpace(string(b))))
	}

	var payload generateContentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", upstreamError(SourceGeminiREST, 0, fmt.Errorf("decode response: %w", err))
	}
	if payload.PromptFeedback != nil && payload.PromptFeedback.BlockReason != "" {
		return "", upstreamError(SourceGeminiREST, 0, fmt.Errorf("prompt blocked: %s", payload.PromptFeedback.BlockReason))
	}
	if len(payload.Candidates) == 0 {
		return "", upstreamError(SourceGeminiREST, 0, errors.New("no candidates in response"))
	}

	var b strings.Builder
	for _, p := range payload.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", upstreamError(SourceGeminiREST, 0, errors.New("empty completion"))
	}
	return text, nil
}
