package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 2048

	outcomeSent        = "sent"
	outcomeRejected    = "rejected"
	outcomeUnreachable = "unreachable"
)

var (
	errPreviewURLRequired      = errors.New("preview webhook url is required")
	errConfirmationURLRequired = errors.New("confirmation webhook url is required")
)

// Result is what a webhook call produced. It is a value, not an error: a failed
// notification never rolls back or blocks the settlement.
type Result struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Observer receives one observation per webhook call.
type Observer interface {
	ObserveNotification(kind, outcome string)
}

// Notifier posts settlement payloads.
type Notifier interface {
	SendPreview(ctx context.Context, payload Payload) Result
	SendConfirmation(ctx context.Context, payload Payload) Result
}

// Config wires the two webhook endpoints.
type Config struct {
	PreviewURL      string
	ConfirmationURL string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Observer        Observer
	Logger          *logger.Logger
}

// Dispatcher posts JSON payloads to the preview and confirmation webhooks.
type Dispatcher struct {
	previewURL      string
	confirmationURL string
	client          *http.Client
	observer        Observer
	logg            *logger.Logger
}

// NewDispatcher validates the endpoints and builds a Dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	preview := strings.TrimSpace(cfg.PreviewURL)
	if preview == "" {
		return nil, errPreviewURLRequired
	}
	confirmation := strings.TrimSpace(cfg.ConfirmationURL)
	if confirmation == "" {
		return nil, errConfirmationURLRequired
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Dispatcher{
		previewURL:      preview,
		confirmationURL: confirmation,
		client:          client,
		observer:        cfg.Observer,
		logg:            cfg.Logger,
	}, nil
}

// SendPreview posts to the preview webhook.
func (d *Dispatcher) SendPreview(ctx context.Context, payload Payload) Result {
	return d.send(ctx, enums.NotificationKindPreview, d.previewURL, payload)
}

// SendConfirmation posts to the confirmation webhook.
func (d *Dispatcher) SendConfirmation(ctx context.Context, payload Payload) Result {
	return d.send(ctx, enums.NotificationKindConfirmation, d.confirmationURL, payload)
}

func (d *Dispatcher) send(ctx context.Context, kind enums.NotificationKind, endpoint string, payload Payload) Result {
	result := d.post(ctx, endpoint, payload)

	outcome := outcomeSent
	switch {
	case result.Success:
	case result.StatusCode == 0:
		outcome = outcomeUnreachable
	default:
		outcome = outcomeRejected
	}
	if d.observer != nil {
		d.observer.ObserveNotification(kind.String(), outcome)
	}
	if !result.Success && d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"notification_kind": kind.String(),
			"status_code":       result.StatusCode,
		})
		d.logg.Warn(logCtx, "settlement notification failed: "+result.Message)
	}
	return result
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, payload Payload) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Message: "encode payload: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Message: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{Message: "webhook unreachable: " + err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	message := readMessage(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return Result{StatusCode: resp.StatusCode, Message: message}
	}
	return Result{Success: true, StatusCode: resp.StatusCode, Message: message}
}

// readMessage returns the optional {message} of a webhook response.
func readMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, responseBodyReadLimit))
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Message)
}
