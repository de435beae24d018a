package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ahloulbait/internal/config"
)

// ErrUnavailable covers the upstream's quota and rate ceilings (402/429)
// as well as a missing configuration; callers surface a generic localized
// message, never the upstream detail.
var ErrUnavailable = errors.New("chat service unavailable")

// ErrUpstream covers every other completion failure on the upstream side;
// callers answer it as a bad gateway.
var ErrUpstream = errors.New("chat upstream error")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the opaque completion service: a message history in, a reply
// out. The knowledge base behind it is not this service's concern.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type DisabledClient struct{}

func (DisabledClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return "", ErrUnavailable
}

type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewClient(cfg config.Config) Client {
	if !cfg.ChatEnabled() {
		return DisabledClient{}
	}
	return &HTTPClient{
		endpoint: strings.TrimSpace(cfg.ChatCompletionURL),
		apiKey:   strings.TrimSpace(cfg.ChatAPIKey),
		model:    strings.TrimSpace(cfg.ChatModel),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Complete(ctx context.Context, messages []Message) (string, error) {
	raw, err := json.Marshal(completionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: upstream HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}
