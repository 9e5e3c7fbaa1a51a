package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestOpenAICompat_Generate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gemini-2.5-flash",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Coco-Peat is a growing medium."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAICompat("test-key", srv.URL, "gemini-2.5-flash", srv.Client())
	require.True(t, o.Available())

	text, err := o.Generate(context.Background(), Request{Message: "coco peat?", Prompt: "SYSTEM\n\nUser Question: coco peat?"})
	require.NoError(t, err)
	require.Equal(t, "Coco-Peat is a growing medium.", text)
	require.Equal(t, "gemini-2.5-flash", gotBody["model"])

	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	require.Equal(t, "user", msg["role"])
	require.Equal(t, "SYSTEM\n\nUser Question: coco peat?", msg["content"])
}

func TestOpenAICompat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAICompat("test-key", srv.URL, "gemini-2.5-flash", srv.Client())
	_, err := o.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	require.Equal(t, SourceOpenAICompat, upErr.Provider)
	require.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
}

func TestOpenAICompat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompat("k", srv.URL, "m", srv.Client()).Generate(context.Background(), Request{Prompt: "p"})
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Contains(t, err.Error(), "no choices")
}

func TestOpenAICompat_Unavailable(t *testing.T) {
	for _, tc := range []struct{ name, key, base, model string }{
		{"no key", "", "http://x", "m"},
		{"no base", "k", "", "m"},
		{"no model", "k", "http://x", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOpenAICompat(tc.key, tc.base, tc.model, nil)
			require.False(t, o.Available())
			_, err := o.Generate(context.Background(), Request{Prompt: "p"})
			require.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestGeminiREST_Generate(t *testing.T) {
	var got generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "rest-key", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Delivery takes "},{"text":"3-5 days."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g := NewGeminiREST("rest-key", srv.URL+"/", "models/gemini-2.5-flash", WithRESTHTTPClient(srv.Client()))
	require.True(t, g.Available())

	text, err := g.Generate(context.Background(), Request{Message: "delivery?", Prompt: "full prompt"})
	require.NoError(t, err)
	require.Equal(t, "Delivery takes 3-5 days.", text)
	require.Len(t, got.Contents, 1)
	require.Equal(t, "full prompt", got.Contents[0].Parts[0].Text)
}

func TestGeminiREST_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"non-2xx", http.StatusForbidden, `{"error":{"message":"API key not valid"}}`, http.StatusForbidden, "API key not valid"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, 0, "no candidates"},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, 0, "prompt blocked: SAFETY"},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, 0, "empty completion"},
		{"bad json", http.StatusOK, `not json`, 0, "decode response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			g := NewGeminiREST("k", srv.URL, "m", WithRESTHTTPClient(srv.Client()))
			_, err := g.Generate(context.Background(), Request{Prompt: "p"})
			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			require.Equal(t, SourceGeminiREST, upErr.Provider)
			require.Equal(t, tc.wantStatus, upErr.StatusCode)
			require.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestGeminiREST_ErrorBodyIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 10_000)))
	}))
	defer srv.Close()

	_, err := NewGeminiREST("k", srv.URL, "m", WithRESTHTTPClient(srv.Client())).Generate(context.Background(), Request{Prompt: "p"})
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Len(t, upErr.Err.Error(), 4096)
}

func TestGeminiREST_Unavailable(t *testing.T) {
	g := NewGeminiREST("", "http://x", "m")
	require.False(t, g.Available())
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCannedReply(t *testing.T) {
	got := CannedReply("Do you deliver to Pune?")
	require.True(t, strings.HasPrefix(got, "Thanks for your question!\n\n"))
	require.Contains(t, got, "(You asked: Do you deliver to Pune?...)")
	require.Contains(t, got, "Vrindavan Prem (perfume), Coco-Peat, Coconut husk plates, and Bricket.")

	long := strings.Repeat("é", 200)
	got = CannedReply(long)
	require.Contains(t, got, "(You asked: "+strings.Repeat("é", 80)+"...)")
	require.NotContains(t, got, strings.Repeat("é", 81))
	require.True(t, utf8.ValidString(got))
}

func TestCanned_NeverFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	text, err := Canned{}.Generate(ctx, Request{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, CannedReply("hi"), text)
	require.True(t, Canned{}.Available())
}
