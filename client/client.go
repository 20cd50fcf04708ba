// Package client is the HTTP client for a chefkit server. It implements the
// service interfaces the session pipeline handlers consume.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"chefkit/core"
)

// Client wraps the chefkit server's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *core.Logger
}

type messageRequest struct {
	Message string `json:"message"`
}

type chatRequest struct {
	Messages []core.Turn `json:"messages"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// New creates a new API client. Deadlines come from the caller's context;
// the underlying transport carries no timeout of its own because the chat
// stream is long-lived.
func New(baseURL string, logger *core.Logger) *Client {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// StreamChat posts the full turn sequence and relays the response body to
// out chunk by chunk, in arrival order.
func (c *Client) StreamChat(ctx context.Context, turns []core.Turn, out chan<- string) error {
	body, err := sonic.Marshal(chatRequest{Messages: turns})
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewTransportFailure("chat request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.remoteFailure("chat", resp)
	}

	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			select {
			case out <- string(buf[:n]):
			case <-ctx.Done():
				return core.NewTransportFailure("chat stream cancelled", ctx.Err())
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.NewTransportFailure("chat stream read", err)
		}
	}
}

// GenerateImage requests an illustration of the given recipe text and
// returns the embedded base64 payload. Empty text never reaches the server.
func (c *Client) GenerateImage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", core.NewValidationFailure("image text is empty")
	}

	resp, err := c.postJSON(ctx, "/api/images", messageRequest{Message: text})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.remoteFailure("image generation", resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.NewTransportFailure("reading image response", err)
	}
	var b64 string
	if err := sonic.Unmarshal(raw, &b64); err != nil {
		return "", core.NewRemoteContractFailure("image response is not a JSON string")
	}
	if b64 == "" {
		return "", core.NewRemoteContractFailure("image response contained no payload")
	}
	return b64, nil
}

// SynthesizeSpeech requests narration audio for the given text and returns
// the raw binary payload. Empty text never reaches the server.
func (c *Client) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewValidationFailure("speech text is empty")
	}

	resp, err := c.postJSON(ctx, "/api/audio", messageRequest{Message: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.remoteFailure("speech synthesis", resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewTransportFailure("reading audio response", err)
	}
	if len(payload) == 0 {
		return nil, core.NewRemoteContractFailure("audio response contained no payload")
	}
	return payload, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewTransportFailure(path, err)
	}
	return resp, nil
}

// remoteFailure turns a non-2xx response into a classified failure carrying
// the remote's status and error detail.
func (c *Client) remoteFailure(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if err := sonic.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		detail = parsed.Error
		if parsed.Details != "" {
			detail += ": " + parsed.Details
		}
	}
	return core.NewRemoteFailure(op+" failed", resp.StatusCode, detail)
}
