// Cache warming for the published banner URL.
//
// Before each edit cycle the publisher fetches the banner once so the
// image is rendered by the time Discord's proxy asks for it.

package publisher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/servercard/internal/discord"
)

// maxWarmBody caps how much of the banner is read during warm-up.
const maxWarmBody = 16 << 20

// HTTPWarmer fetches the banner over HTTP with retries.
type HTTPWarmer struct {
	client *retryablehttp.Client
}

// NewWarmer returns an HTTPWarmer whose attempts time out after timeout.
func NewWarmer(timeout time.Duration) *HTTPWarmer {
	return &HTTPWarmer{client: discord.NewHTTPClient(discord.Options{Timeout: timeout, RetryMax: 2})}
}

// Warm GETs url and discards the body. Non-2xx responses are errors.
func (w *HTTPWarmer) Warm(ctx context.Context, url string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build warm-up request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("warm-up GET: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxWarmBody)); err != nil {
		return fmt.Errorf("warm-up read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("warm-up GET: status %d", resp.StatusCode)
	}
	return nil
}
