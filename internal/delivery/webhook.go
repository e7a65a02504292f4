// internal/delivery/webhook.go
//
// Webhook backend.  POSTs the submission as JSON to a fixed URL with an
// optional bearer token and an Idempotency-Key header carrying the
// submission ID.  Any 2xx is success.
//
// A circuit breaker sits in front of the HTTP call.  After five
// consecutive failures it opens for thirty seconds and every Deliver fails
// fast, which surfaces to the visitor as the usual transport notice
// instead of a thirty-second spinner.

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanizio/serenity/internal/contact"
)

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook status %d: %s", e.Code, e.Body)
}

// Webhook posts submissions to URL.
type Webhook struct {
	URL   string
	Token string

	HTTP    *http.Client
	Breaker *gobreaker.CircuitBreaker
}

// NewWebhook returns a Webhook with an 8-second HTTP client and a breaker
// named after the backend.
func NewWebhook(url, token string) *Webhook {
	return &Webhook{
		URL:   url,
		Token: token,
		HTTP:  &http.Client{Timeout: 8 * time.Second},
		Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "contact-webhook",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		}),
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Deliver implements contact.Transport.
func (w *Webhook) Deliver(ctx context.Context, sub contact.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if w.Breaker == nil {
		return w.post(ctx, sub.ID, body)
	}
	_, err = w.Breaker.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, sub.ID, body)
	})
	return err
}

func (w *Webhook) post(ctx context.Context, id string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", id)
	if w.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.Token)
	}

	client := w.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
