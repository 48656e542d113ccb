// Package publisher keeps a single Discord webhook message pointing at a
// fresh copy of the status banner.
//
// Startup resolves the message id (explicit override, then the state file,
// then a newly created message). Each cycle optionally warms the banner URL,
// then edits the message with a cache-busted image URL. A deleted message is
// recreated and its id persisted; a rate limit is slept off and the same
// operation retried. Shutdown is honoured between cycles, never inside one.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tools.zach/dev/servercard/internal/discord"
)

// MaxAttempts bounds rate-limit retries for a single operation.
const MaxAttempts = 5

// ErrCreate marks a failure to create the initial message.
var ErrCreate = errors.New("create webhook message")

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Messenger creates and edits webhook messages. [*discord.Webhook]
// satisfies it.
type Messenger interface {
	Create(ctx context.Context, p discord.Payload) (string, error)
	Edit(ctx context.Context, id string, p discord.Payload) error
}

// IDStore persists the message id. [*state.Store] satisfies it.
type IDStore interface {
	Load() (string, error)
	Save(id string) error
}

// Warmer fetches the banner ahead of the edit so Discord's image proxy finds
// it already rendered.
type Warmer interface {
	Warm(ctx context.Context, url string) error
}

// Options configure a [Publisher].
type Options struct {
	Webhook Messenger
	Store   IDStore
	// Warmer is optional; nil skips the warm-up request.
	Warmer Warmer

	BannerURL string
	Title     string
	Content   string
	Interval  time.Duration
	// MessageID overrides the stored id when set.
	MessageID string

	// Reload receives a value whenever the stored id may have changed.
	Reload <-chan struct{}

	// Now and Sleep are replaceable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Publisher runs the refresh loop. It is not safe for concurrent use.
type Publisher struct {
	opts Options
	id   string
}

// New returns a Publisher. Defaults are filled for Now and Sleep.
func New(opts Options) *Publisher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Publisher{opts: opts}
}

// ID returns the message id currently being edited.
func (p *Publisher) ID() string { return p.id }

// ///////////////////////////////////////////////
// Loop
// ///////////////////////////////////////////////

// Run ensures a message exists, then refreshes it every Interval until ctx
// is cancelled. Only a failed initial creation is returned as an error; it
// wraps [ErrCreate].
func (p *Publisher) Run(ctx context.Context) error {
	if _, err := p.Ensure(ctx); err != nil {
		return err
	}
	slog.Info("publisher started", "id", p.id, "interval", p.opts.Interval)

	for {
		if err := p.Cycle(context.WithoutCancel(ctx)); err != nil {
			slog.Error("refresh cycle failed", "id", p.id, "error", err)
		}
		if !p.wait(ctx) {
			slog.Info("graceful shutdown")
			return nil
		}
	}
}

// Ensure resolves the message id, creating and persisting a new message when
// none is known.
func (p *Publisher) Ensure(ctx context.Context) (string, error) {
	if id := strings.TrimSpace(p.opts.MessageID); id != "" {
		p.id = id
		slog.Info("using configured message id", "id", id)
		return id, nil
	}

	stored, err := p.opts.Store.Load()
	if err != nil {
		slog.Warn("cannot read stored message id", "error", err)
	}
	if stored != "" {
		p.id = stored
		slog.Info("using stored message id", "id", stored)
		return stored, nil
	}

	id, err := p.create(ctx, p.payload())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreate, err)
	}
	p.adopt(id)
	slog.Info("created webhook message", "id", id)
	return id, nil
}

// Cycle performs one warm-up and edit. A missing message is recreated.
func (p *Publisher) Cycle(ctx context.Context) error {
	payload := p.payload()
	imageURL := payload.Embeds[0].Image.URL

	if p.opts.Warmer != nil {
		if err := p.opts.Warmer.Warm(ctx, imageURL); err != nil {
			slog.Warn("banner warm-up failed", "url", imageURL, "error", err)
		}
	}

	err := p.retry(ctx, "edit", func() error {
		return p.opts.Webhook.Edit(ctx, p.id, payload)
	})
	switch {
	case errors.Is(err, discord.ErrNotFound):
		slog.Warn("webhook message not found, recreating", "id", p.id)
		id, err := p.create(ctx, payload)
		if err != nil {
			return fmt.Errorf("recreate message: %w", err)
		}
		p.adopt(id)
		slog.Info("recreated", "id", id)
		return nil
	case err != nil:
		return fmt.Errorf("edit message %s: %w", p.id, err)
	}
	slog.Info("banner refreshed", "id", p.id, "url", imageURL)
	return nil
}

// wait blocks for Interval, applying reloads as they arrive. It reports
// false when ctx is cancelled.
func (p *Publisher) wait(ctx context.Context) bool {
	timer := time.NewTimer(p.opts.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-p.opts.Reload:
			p.reload()
		}
	}
}

func (p *Publisher) reload() {
	id, err := p.opts.Store.Load()
	if err != nil {
		slog.Warn("cannot reload message id", "error", err)
		return
	}
	if id == "" || id == p.id {
		return
	}
	slog.Info("message id reloaded", "old", p.id, "new", id)
	p.id = id
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func (p *Publisher) create(ctx context.Context, payload discord.Payload) (string, error) {
	var id string
	err := p.retry(ctx, "create", func() error {
		var err error
		id, err = p.opts.Webhook.Create(ctx, payload)
		return err
	})
	return id, err
}

// adopt switches to id and persists it. A failed write only costs a new
// message on the next restart, so it is logged rather than returned.
func (p *Publisher) adopt(id string) {
	p.id = id
	if err := p.opts.Store.Save(id); err != nil {
		slog.Warn("cannot persist message id", "id", id, "error", err)
	}
}

// retry runs fn, sleeping off rate limits up to [MaxAttempts] times.
func (p *Publisher) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = fn()
		var rl *discord.RateLimitError
		if !errors.As(err, &rl) {
			return err
		}
		if attempt == MaxAttempts {
			break
		}
		slog.Warn("rate limited", "op", op, "retry_after", rl.RetryAfter, "attempt", attempt)
		if serr := p.opts.Sleep(ctx, rl.RetryAfter); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, MaxAttempts, err)
}

func (p *Publisher) payload() discord.Payload {
	return discord.NewPayload(p.opts.Content, p.opts.Title, BustURL(p.opts.BannerURL, p.opts.Now()))
}

// BustURL appends a v=<unix seconds> parameter so each edit references a URL
// Discord has not cached.
func BustURL(base string, now time.Time) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "v=" + strconv.FormatInt(now.Unix(), 10)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
