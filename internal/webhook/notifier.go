// Package webhook delivers promoter change events to an automation endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/promoter-service/internal/config"
	"github.com/sells-group/promoter-service/internal/resilience"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Promoter-Signature"

// EventType identifies the kind of change.
type EventType string

const (
	EventStatusUpdated EventType = "promoter.status_updated"
	EventDeleted       EventType = "promoter.deleted"
	EventCreated       EventType = "promoter.created"
)

// Event is the JSON body posted to the webhook URL.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	PromoterIDs []string  `json:"promoter_ids"`
	Status      string    `json:"status,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh id and timestamp on an event.
func NewEvent(typ EventType, ids []string, status string, now time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		PromoterIDs: ids,
		Status:      status,
		OccurredAt:  now.UTC(),
	}
}

// StatusError is returned when the endpoint responds with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: endpoint returned HTTP %d", e.StatusCode)
}

// ErrorCode exposes the status so 5xx and 429 responses are retried.
func (e *StatusError) ErrorCode() string {
	return strconv.Itoa(e.StatusCode)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) {
		n.client = hc
	}
}

// WithRetry overrides the delivery retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(n *Notifier) {
		n.retry = cfg
	}
}

// Notifier posts events to the configured URL. A zero URL disables it.
type Notifier struct {
	cfg     config.WebhookConfig
	client  *http.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// New creates a Notifier from cfg.
func New(cfg config.WebhookConfig, opts ...Option) *Notifier {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	n := &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		retry:   resilience.DefaultRetryConfig(),
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether a URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.cfg.URL != ""
}

// Notify delivers ev and logs, rather than returns, any failure.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if !n.Enabled() {
		return
	}
	if err := n.Send(ctx, ev); err != nil {
		zap.L().Error("webhook: delivery failed",
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)),
			zap.Strings("promoter_ids", ev.PromoterIDs),
			zap.Error(err),
		)
		return
	}
	zap.L().Debug("webhook: event delivered",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
	)
}

// Send delivers ev under the retry policy.
func (n *Notifier) Send(ctx context.Context, ev Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "webhook: marshal event")
	}

	cfg := n.retry
	cfg.OnRetry = resilience.RetryLogger("webhook", string(ev.Type))
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return n.post(ctx, payload)
	})
}

func (n *Notifier) post(ctx context.Context, payload []byte) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "webhook: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.cfg.Secret, payload))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "webhook: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck
	return hex.EncodeToString(mac.Sum(nil))
}
