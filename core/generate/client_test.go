package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestGenerateText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Новый ноутбук!  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/v1/", APIKey: "key", SystemPrompt: "sys", HTTPClient: srv.Client()})
	text, err := c.GenerateText(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "Новый ноутбук!", text)

	require.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].(map[string]any)["role"])
	require.Equal(t, "hello", msgs[1].(map[string]any)["content"])
}

func TestGenerateTextEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()}).GenerateText(context.Background(), "x")
	require.ErrorIs(t, err, ErrEmptyResult)
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "dall-e-3", body["model"])
		require.Equal(t, "1024x1024", body["size"])
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/1.png"}]}`))
	}))
	defer srv.Close()

	ref, err := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()}).GenerateImage(context.Background(), "cat")
	require.NoError(t, err)
	require.Equal(t, "https://img.example/1.png", ref)
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()}).GenerateText(context.Background(), "x")
	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
	require.Equal(t, "Rate limit reached", Reason(err))
}

func TestReason(t *testing.T) {
	require.Equal(t, "", Reason(nil))
	require.Equal(t, ErrEmptyResult.Error(), Reason(ErrEmptyResult))
}

func TestPostPrompt(t *testing.T) {
	p := PostPrompt("ноутбуки", []string{"a", "b"})
	require.Contains(t, p, "«ноутбуки»")
	require.Contains(t, p, "1. a\n2. b\n")
	require.NotContains(t, PostPrompt("x", nil), "материалы")
}
