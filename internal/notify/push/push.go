package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"canteen-backend/pkg/logger"
)

const (
	maxAttempts = 3
	baseBackoff = 200 * time.Millisecond
)

// Client delivers push messages keyed by a registered device token through
// an FCM-style HTTP endpoint. Delivery is best-effort; transient failures
// are retried with linear backoff before giving up.
type Client struct {
	endpoint  string
	serverKey string
	http      *http.Client
	log       *logger.Logger
}

type message struct {
	To           string       `json:"to"`
	Notification notification `json:"notification"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func NewClient(endpoint, serverKey string, log *logger.Logger) *Client {
	return &Client{
		endpoint:  endpoint,
		serverKey: serverKey,
		http:      &http.Client{Timeout: 5 * time.Second},
		log:       log,
	}
}

// Send posts the notification for the given device token. The last error is
// returned after all attempts are exhausted.
func (c *Client) Send(ctx context.Context, deviceToken, title, body string) error {
	payload, err := json.Marshal(message{
		To:           deviceToken,
		Notification: notification{Title: title, Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * baseBackoff):
			}
		}

		lastErr = c.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		c.log.Action("push_attempt_failed").Warn("Push delivery attempt failed",
			"attempt", attempt, "error", lastErr.Error())
	}
	return fmt.Errorf("push delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned %s", resp.Status)
	}
	return nil
}
