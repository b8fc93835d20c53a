package aiproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// upstreamTimeout bounds one completion round trip. Generation is slow, so
// this is looser than the auth adapter's timeout.
const upstreamTimeout = 60 * time.Second

// ChatRequest is the request envelope shared with the frontend.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamError is returned when the provider answered non-2xx. Detail
// carries the raw upstream body for logs.
type UpstreamError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("aiproxy: %s answered %d: %s", e.Provider, e.Status, e.Detail)
}

// Forwarder posts chat requests upstream.
type Forwarder struct {
	http *http.Client
}

func NewForwarder() *Forwarder {
	return &Forwarder{http: &http.Client{Timeout: upstreamTimeout}}
}

// Forward relays one chat request to the provider and returns the raw
// upstream response body. The provider's default model fills in when the
// request names none.
func (f *Forwarder) Forward(ctx context.Context, p *Provider, req *ChatRequest) (json.RawMessage, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("aiproxy: empty messages")
	}

	payload := map[string]any{
		"messages": req.Messages,
		"model":    req.Model,
	}
	if req.Model == "" {
		payload["model"] = p.Model
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("aiproxy: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.ChatURL(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("aiproxy: upstream request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode/100 != 2 {
		return nil, &UpstreamError{
			Provider: p.Name,
			Status:   resp.StatusCode,
			Detail:   string(respBody),
		}
	}
	if !json.Valid(respBody) {
		return nil, &UpstreamError{Provider: p.Name, Status: resp.StatusCode, Detail: "invalid JSON from upstream"}
	}
	return json.RawMessage(respBody), nil
}
