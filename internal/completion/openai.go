package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompat calls the provider through its OpenAI-compatible chat
// completions endpoint using the go-openai SDK.
type OpenAICompat struct {
	client *openai.Client
	model  string
}

// NewOpenAICompat never fails; a client that cannot be built reports
// Available() == false and Generate returns ErrUnavailable.
func NewOpenAICompat(apiKey, baseURL, model string, httpClient *http.Client) *OpenAICompat {
	apiKey = strings.TrimSpace(apiKey)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	model = strings.TrimSpace(model)
	if apiKey == "" || baseURL == "" || model == "" {
		return &OpenAICompat{model: model}
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAICompat{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAICompat) Name() string    { return SourceOpenAICompat }
func (o *OpenAICompat) Available() bool { return o.client != nil }

func (o *OpenAICompat) Generate(ctx context.Context, req Request) (string, error) {
	if o.client == nil {
		return "", ErrUnavailable
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", upstreamError(SourceOpenAICompat, statusFromSDK(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", upstreamError(SourceOpenAICompat, 0, errors.New("no choices in response"))
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", upstreamError(SourceOpenAICompat, 0, errors.New("empty completion"))
	}
	return text, nil
}

func statusFromSDK(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
