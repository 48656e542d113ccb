// Package discord is a small client for Discord's webhook REST API: post a
// message, then keep editing it in place.
//
// [Webhook.Create] posts with ?wait=true so Discord returns the message id;
// [Webhook.Edit] patches it. A deleted message surfaces as [ErrNotFound] and
// throttling as [*RateLimitError]. Neither is retried by the transport;
// callers decide how to react. Network failures and 5xx responses are
// retried by go-retryablehttp.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// ErrNotFound is returned when the webhook or message no longer exists.
var ErrNotFound = errors.New("discord: not found")

// DefaultRetryAfter is used when a 429 carries no usable delay.
const DefaultRetryAfter = 5 * time.Second

// RateLimitError is returned for HTTP 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("discord: rate limited, retry after %s", e.RetryAfter)
}

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// ///////////////////////////////////////////////
// Payload
// ///////////////////////////////////////////////

// Payload is the JSON body for create and edit.
type Payload struct {
	Content         string          `json:"content"`
	Embeds          []Embed         `json:"embeds"`
	AllowedMentions AllowedMentions `json:"allowed_mentions"`
}

// Embed is a message embed carrying a single image.
type Embed struct {
	Title string     `json:"title,omitempty"`
	Image EmbedImage `json:"image"`
}

// EmbedImage points an embed at an image URL.
type EmbedImage struct {
	URL string `json:"url"`
}

// AllowedMentions controls which mentions in Content ping anyone.
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// NewPayload builds a single-embed payload with all mentions suppressed.
func NewPayload(content, title, imageURL string) Payload {
	return Payload{
		Content:         content,
		Embeds:          []Embed{{Title: title, Image: EmbedImage{URL: imageURL}}},
		AllowedMentions: AllowedMentions{Parse: []string{}},
	}
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Options tune the underlying HTTP client. Zero values pick defaults.
type Options struct {
	Timeout      time.Duration // per attempt, default 15s
	RetryMax     int           // default 3; negative disables retries
	RetryWaitMin time.Duration // default 1s
	RetryWaitMax time.Duration // default 10s
}

// Webhook talks to one webhook URL.
type Webhook struct {
	base   *url.URL
	client *retryablehttp.Client
}

// NewWebhook validates rawURL and prepares a client for it.
func NewWebhook(rawURL string, opts Options) (*Webhook, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("parse webhook url: %q is not an absolute http(s) url", rawURL)
	}
	return &Webhook{base: u, client: NewHTTPClient(opts)}, nil
}

// NewHTTPClient returns a retrying client that leaves 404 and 429 to the
// caller and hands back the final response instead of a generic error.
func NewHTTPClient(opts Options) *retryablehttp.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = time.Second
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 10 * time.Second
	}

	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = opts.RetryWaitMin
	c.RetryWaitMax = opts.RetryWaitMax
	c.HTTPClient.Timeout = opts.Timeout
	c.Logger = nil
	c.CheckRetry = checkRetry
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusTooManyRequests) {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Create posts a new message and returns its id.
func (w *Webhook) Create(ctx context.Context, p Payload) (string, error) {
	u := *w.base
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()

	body, err := w.do(ctx, http.MethodPost, u.String(), p)
	if err != nil {
		return "", err
	}
	var msg struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if msg.ID == "" {
		return "", errors.New("decode create response: missing message id")
	}
	slog.Debug("webhook message created", "id", msg.ID)
	return msg.ID, nil
}

// Edit replaces the content of message id.
func (w *Webhook) Edit(ctx context.Context, id string, p Payload) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("edit message: %w", ErrNotFound)
	}
	u := *w.base
	u.Path = strings.TrimRight(u.Path, "/") + "/messages/" + url.PathEscape(id)
	u.RawPath = ""

	if _, err := w.do(ctx, http.MethodPatch, u.String(), p); err != nil {
		return err
	}
	slog.Debug("webhook message edited", "id", id)
	return nil
}

func (w *Webhook) do(ctx context.Context, method, target string, p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, data)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s webhook: %w", method, redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s webhook: read response: %w", method, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s webhook: %w", method, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp.Header, body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s webhook: status %d: %s", method, resp.StatusCode, snippet(body))
	}
	return body, nil
}

// retryAfter reads the delay from the Retry-After header, then the JSON
// retry_after field, then falls back to [DefaultRetryAfter].
func retryAfter(h http.Header, body []byte) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return seconds(secs)
		}
	}
	var rl struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if json.Unmarshal(body, &rl) == nil && rl.RetryAfter > 0 {
		return seconds(rl.RetryAfter)
	}
	return DefaultRetryAfter
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// redact strips the webhook token from transport errors, which embed the URL.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			return fmt.Errorf("%s %s://%s: %w", ue.Op, u.Scheme, u.Host, ue.Err)
		}
	}
	return err
}
