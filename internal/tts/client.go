package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"montage/internal/config"
	"montage/internal/services"
)

// HTTPDoer describes the HTTP client used by the synthesis service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the external voice synthesis service.
type Client struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewClient constructs a synthesis client from configuration.
func NewClient(cfg config.TTS) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "synthesize", "", "tts base url is required", nil)
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// NewClientWithDoer constructs a synthesis client with an injected HTTP
// client, primarily for tests.
func NewClientWithDoer(baseURL, apiKey string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  doer,
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

type synthesizeResponse struct {
	Fragments []struct {
		Audio    []byte  `json:"audio"`
		Duration float64 `json:"durationSeconds"`
	} `json:"fragments"`
}

// Synthesize requests narration audio for one paragraph. The provider may
// return multiple fragments when it split the text internally.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]Fragment, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, VoiceID: voiceID})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "synthesize", "request", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrTransient, "synthesize", "request",
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	var decoded synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrTransient, "synthesize", "decode response", "", err)
	}

	fragments := make([]Fragment, 0, len(decoded.Fragments))
	for _, f := range decoded.Fragments {
		fragments = append(fragments, Fragment{Data: f.Audio, Duration: f.Duration})
	}
	return fragments, nil
}
