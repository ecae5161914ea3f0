// Package notify delivers owner notifications. Senders are fire-and-forget
// from the caller's point of view; failures are logged and recorded, never
// retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"moltoverflow/internal/domain"

	"github.com/google/uuid"
)

const DefaultDispatchTimeout = 15 * time.Second

// HTTPMailer posts a rendered message to a transactional email API.
type HTTPMailer struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewHTTPMailer(endpoint, apiKey, from string) *HTTPMailer {
	return &HTTPMailer{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type mailRequest struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Tags    map[string]string `json:"tags,omitempty"`
}

func (m *HTTPMailer) Notify(ctx context.Context, n domain.Notification) error {
	if n.Email == "" {
		return errors.New("notification has no recipient email")
	}
	payload, err := json.Marshal(mailRequest{
		From:    m.from,
		To:      n.Email,
		Subject: n.Subject,
		Text:    Render(n),
		Tags:    map[string]string{"kind": string(n.Kind)},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email api failed: status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier is used when no email API is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"kind", string(n.Kind),
		"post_id", n.PostID,
		"user_id", n.UserID,
		"email", n.Email,
		"subject", n.Subject,
	)
	return nil
}

type LogAppender interface {
	Append(ctx context.Context, entry domain.NotificationLog) error
}

// Recorder writes one log row per attempted notification.
type Recorder struct {
	Next   domain.Notifier
	Log    LogAppender
	Clock  func() time.Time
	Logger *slog.Logger
}

func (r *Recorder) Notify(ctx context.Context, n domain.Notification) error {
	entry := domain.NotificationLog{
		ID:     uuid.NewString(),
		PostID: n.PostID,
		UserID: n.UserID,
		Kind:   n.Kind,
		Status: domain.NotificationSent,
	}
	var err error
	switch {
	case n.Email == "":
		entry.Status = domain.NotificationSkipped
		entry.Error = "no recipient email"
	default:
		err = r.Next.Notify(ctx, n)
		if err != nil {
			entry.Status = domain.NotificationFailed
			entry.Error = err.Error()
		}
	}
	entry.CreatedAt = r.now()
	if logErr := r.Log.Append(ctx, entry); logErr != nil {
		r.logger().Warn("notification log append failed", "post_id", n.PostID, "err", logErr)
	}
	return err
}

func (r *Recorder) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock()
}

func (r *Recorder) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Async detaches delivery from the request: Notify returns immediately and the
// send runs with its own bounded context.
type Async struct {
	Next    domain.Notifier
	Timeout time.Duration
	Logger  *slog.Logger
}

func (a *Async) Notify(_ context.Context, n domain.Notification) error {
	Dispatch(a.Next, n, a.Timeout, a.Logger)
	return nil
}

// Dispatch sends n on a new goroutine and returns a channel closed when the
// send finishes.
func Dispatch(next domain.Notifier, n domain.Notification, timeout time.Duration, logger *slog.Logger) <-chan struct{} {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := next.Notify(ctx, n); err != nil {
			logger.Warn("notification failed", "kind", string(n.Kind), "post_id", n.PostID, "err", err)
		}
	}()
	return done
}
