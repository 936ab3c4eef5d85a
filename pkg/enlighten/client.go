package enlighten

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/common"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// DefaultPerformanceURL is the public performance endpoint. The installation
// id replaces the %s.
const DefaultPerformanceURL = "https://enlighten.enphaseenergy.com/pv/public_systems/%s/performance.json"

// Client fetches performance data from the Enlighten API. Each fetch is a
// single attempt; callers decide whether and when to try again.
type Client struct {
	client      *http.Client
	urlTemplate string

	mu        sync.RWMutex
	userAgent string
}

// NewClient returns a client using httpClient for requests. The User-Agent
// still has to be prepared before the first fetch.
func NewClient(httpClient *http.Client, urlTemplate string) *Client {
	return &Client{
		client:      httpClient,
		urlTemplate: urlTemplate,
	}
}

// Configured sets up the client from flags.
func Configured() *Client {
	performanceURL := lflag.String("enlighten-performance-url", DefaultPerformanceURL, "URL template for the Enlighten performance endpoint (%s is replaced by the installation id)")
	timeout := lflag.Duration("enlighten-timeout", time.Minute, "Timeout for requests to the Enlighten API")

	c := &Client{}
	lflag.Do(func() {
		c.urlTemplate = *performanceURL
		c.client = common.HTTPClient(*timeout)
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("enlighten validation failed: %v", err))
		}
	})
	return c
}

// Validate ensures the configuration is valid.
func (c *Client) Validate() error {
	if !strings.Contains(c.urlTemplate, "%s") {
		return fmt.Errorf("enlighten-performance-url must contain %%s: %s", c.urlTemplate)
	}
	if _, err := url.Parse(strings.Replace(c.urlTemplate, "%s", "0", 1)); err != nil {
		return fmt.Errorf("failed to parse enlighten url (%s): %w", c.urlTemplate, err)
	}
	return nil
}

// PrepareUserAgent sets the User-Agent sent with every request to
// "<packageName> <version>".
func (c *Client) PrepareUserAgent(packageName, version string) error {
	packageName = strings.TrimSpace(packageName)
	if packageName == "" {
		return errors.New("missing package name for user-agent")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userAgent = strings.TrimSpace(packageName + " " + strings.TrimSpace(version))
	return nil
}

// UserAgent returns the prepared User-Agent or an empty string.
func (c *Client) UserAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAgent
}

// PerformanceURL returns the performance endpoint for installationID.
func (c *Client) PerformanceURL(installationID string) string {
	return strings.Replace(c.urlTemplate, "%s", url.PathEscape(installationID), 1)
}

// Fetch issues one GET for rawURL and returns the body as text.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	userAgent := c.UserAgent()
	if userAgent == "" {
		return "", ErrUserAgentNotPrepared
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &APIError{Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "enlighten request failed", slog.String("url", rawURL), slog.Any("error", err))
		return "", &APIError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).WarnContext(ctx, "enlighten api returned error status", slog.String("url", rawURL), slog.Int("status", resp.StatusCode))
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	return string(body), nil
}

// GetPerformance fetches and parses the performance data for installationID.
// The snapshot is stamped with now.
func (c *Client) GetPerformance(ctx context.Context, installationID string, now time.Time) (types.Snapshot, error) {
	body, err := c.Fetch(ctx, c.PerformanceURL(installationID))
	if err != nil {
		return types.Snapshot{}, err
	}
	s, err := ParsePerformance(body, now)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to parse enlighten response", slog.Any("error", err), slog.String("body", body))
		return types.Snapshot{}, err
	}
	log.Ctx(ctx).DebugContext(ctx, "got performance data", slog.String("snapshot", s.String()))
	return s, nil
}
