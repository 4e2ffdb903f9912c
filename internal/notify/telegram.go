// Package notify delivers promotion alerts to the configured chat
// transport. The only implementation talks to the Telegram Bot API.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/promo"
)

// Transport defaults, matching the tuned client used for scraping.
const (
	defaultAPIBaseURL     = "https://api.telegram.org"
	defaultRequestTimeout = 15 * time.Second
	defaultMinSendGap     = time.Second
	maxErrorBodyBytes     = 256
)

// ErrDeliveryFailed is returned when Telegram rejects or never receives a
// message. The pipeline treats it as retry-next-cycle, never as fatal.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Notifier is the chat transport boundary.
type Notifier interface {
	Notify(ctx context.Context, p promo.Promo) error
}

// Telegram sends alerts through the Telegram Bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  logger.Interface
	limiter *intervalLimiter
}

// Option configures a Telegram notifier.
type Option func(*Telegram)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(t *Telegram) { t.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Telegram) { t.client = client }
}

// WithMinSendGap overrides the minimum gap between sends.
func WithMinSendGap(gap time.Duration) Option {
	return func(t *Telegram) { t.limiter = newIntervalLimiter(gap) }
}

// NewTelegram creates a Telegram notifier for the given bot and chat.
func NewTelegram(token, chatID string, log logger.Interface, opts ...Option) *Telegram {
	t := &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: defaultAPIBaseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		logger:  log,
		limiter: newIntervalLimiter(defaultMinSendGap),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Notify formats and delivers one promotion alert. Transport failures are
// returned as wrapped ErrDeliveryFailed values; they never panic past the
// pipeline boundary.
func (t *Telegram) Notify(ctx context.Context, p promo.Promo) error {
	if err := t.limiter.wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", FormatMessage(p))
	form.Set("disable_web_page_preview", "true")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		t.logger.Warn("Telegram rejected message",
			"status", resp.StatusCode,
			"body", string(body))
		return fmt.Errorf("%w: telegram returned status %d",
			ErrDeliveryFailed, resp.StatusCode)
	}

	// Telegram can report ok=false with a 200 status.
	tr, err := decodeResponse(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	if !tr.OK {
		t.logger.Warn("Telegram reported failure", "description", tr.Description)
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, tr.Description)
	}
	return nil
}

// FormatMessage renders the stable, human-readable alert template.
func FormatMessage(p promo.Promo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 %d%% · %s", p.BonusPct, strings.ToUpper(p.Program))
	if p.Title != "" {
		b.WriteString("\n")
		b.WriteString(p.Title)
	}
	b.WriteString("\n")
	b.WriteString(p.URL)
	return b.String()
}

// telegramResponse is the subset of the Bot API response we care about.
// Kept for diagnostics when Telegram reports ok=false with a 200 status.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// decodeResponse parses a Bot API response body.
func decodeResponse(r io.Reader) (telegramResponse, error) {
	var tr telegramResponse
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return telegramResponse{}, fmt.Errorf("failed to decode telegram response: %w", err)
	}
	return tr, nil
}
