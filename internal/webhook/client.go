package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

type Config struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt; it doubles after that.
	InitialBackoff time.Duration
}

// Client posts signed events to one endpoint.
type Client struct {
	config Config
	client *http.Client
	now    func() time.Time
}

func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 500 * time.Millisecond
	}
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}
}

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned HTTP %d", e.StatusCode)
}

// Send delivers event, retrying network errors and 5xx answers with
// exponential backoff. 4xx answers are not retried.
func (c *Client) Send(ctx context.Context, eventType string, data any) error {
	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Timestamp: c.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.InitialBackoff
	policy.MaxElapsedTime = 0

	op := func() error {
		err := c.post(ctx, event, payload)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.config.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("deliver %s: %w", event.Type, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, event Event, payload []byte) error {
	ts := c.now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(c.config.Secret, ts, payload))
	req.Header.Set(TimestampHeader, strconv.FormatInt(ts, 10))
	req.Header.Set(EventHeader, event.Type)
	req.Header.Set(DeliveryHeader, event.ID.String())
	req.Header.Set("User-Agent", "Chamada-Webhook/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
