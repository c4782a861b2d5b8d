package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/njbennett/changepoll/internal/config"
)

// webhookSink POSTs one JSON document per event to a fixed URL.
type webhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates the HTTP webhook sink.
func NewWebhookSink(cfg config.WebhookSinkConfig) Sink {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &webhookSink{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *webhookSink) Name() string { return "webhook" }

func (s *webhookSink) Emit(ctx context.Context, eventName string, payload map[string]string) error {
	body, err := json.Marshal(struct {
		Event   string            `json:"event"`
		Payload map[string]string `json:"payload"`
		SentAt  time.Time         `json:"sent_at"`
	}{
		Event:   eventName,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook returned http %d", resp.StatusCode)
	}
	return nil
}
