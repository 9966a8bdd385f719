package data

import (
	"context"
	"fmt"
	"time"

	"Scribeline/internal/conf"
	"Scribeline/pkg/gemini"
	"Scribeline/pkg/keypool"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// GeminiTransport implements biz.Transport on top of the Generative Language API client.
type GeminiTransport struct {
	client *gemini.Client
	logger *pkglog.LogHelper
}

// NewGeminiTransport creates the transport from the ai configuration section.
func NewGeminiTransport(c *conf.AI, logger log.Logger) (*GeminiTransport, error) {
	if c == nil {
		c = &conf.AI{}
	}
	client, err := gemini.NewClient(gemini.Config{
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		ProxyURL: c.ProxyURL,
		Timeout:  c.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiTransport{
		client: client,
		logger: pkglog.NewLogHelper(logger),
	}, nil
}

// Model returns the model identifier requests are sent to.
func (t *GeminiTransport) Model() string {
	return t.client.Model()
}

// Generate sends req with apiKey and returns the model's text.
func (t *GeminiTransport) Generate(ctx context.Context, apiKey string, req *gemini.Request) (*gemini.Response, error) {
	start := time.Now()
	resp, err := t.client.Generate(ctx, apiKey, req)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		t.logger.Upstream("generate failed",
			"model", t.client.Model(),
			"credential", keypool.Mask(apiKey),
			"latency_ms", latency,
			"error", err.Error())
		return nil, err
	}

	t.logger.Upstream("generate succeeded",
		"model", t.client.Model(),
		"credential", keypool.Mask(apiKey),
		"latency_ms", latency,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.PromptTokens,
		"output_tokens", resp.OutputTokens)
	return resp, nil
}
