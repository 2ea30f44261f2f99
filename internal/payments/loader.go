package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Loader makes the hosted checkout integration available exactly once per
// process. A failed load leaves it unloaded so the next call retries; loads
// after a success are no-ops.
type Loader struct {
	url   string
	fetch func(ctx context.Context, url string) error

	mu     sync.Mutex
	loaded bool
}

// NewLoader creates a loader that checks the checkout script is reachable.
func NewLoader(scriptURL string, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Loader{
		url: scriptURL,
		fetch: func(ctx context.Context, url string) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)
			if resp.StatusCode >= http.StatusMultipleChoices {
				return fmt.Errorf("status %d", resp.StatusCode)
			}
			return nil
		},
	}
}

// URL is the checkout script the browser should include.
func (l *Loader) URL() string {
	return l.url
}

// Loaded reports whether a load has succeeded.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Load fetches the script unless it is already loaded. Concurrent callers
// wait for the one in progress.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	if l.url == "" {
		return fmt.Errorf("payments: checkout script url not configured")
	}
	if err := l.fetch(ctx, l.url); err != nil {
		return fmt.Errorf("payments: load checkout script: %w", err)
	}
	l.loaded = true
	return nil
}
