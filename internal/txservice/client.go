// Package txservice is the client for the per-network Safe transaction
// service: an existence/version probe plus incremental transaction listing.
package txservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"safe-monitor/internal/models"
	"safe-monitor/internal/networks"
)

// ErrNotFound is returned when the service does not know the wallet.
var ErrNotFound = errors.New("safe not found")

// SafeInfo is the wallet probe response.
type SafeInfo struct {
	Address    string   `json:"address"`
	Nonce      int64    `json:"nonce"`
	Threshold  int      `json:"threshold"`
	Owners     []string `json:"owners"`
	MasterCopy string   `json:"masterCopy"`
	Version    string   `json:"version"`
}

// transactionPage is the paginated multisig-transactions listing.
type transactionPage struct {
	Count    int                      `json:"count"`
	Next     *string                  `json:"next"`
	Previous *string                  `json:"previous"`
	Results  []models.SafeTransaction `json:"results"`
}

// Client talks to the Safe transaction services with rate limiting, bounded
// retries, and explicit timeouts. The services are third-party; nothing about
// their responsiveness is trusted.
type Client struct {
	RateLimiter *rate.Limiter
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPClient  *http.Client
	Logger      *zerolog.Logger

	// baseOverrides replaces the registry service URL per network
	// (self-hosted transaction services).
	baseOverrides map[string]string
}

// NewClient creates a transaction-service client.
func NewClient(rateLimit float64, maxRetries int, retryDelay, httpTimeout time.Duration, baseOverrides map[string]string, logger *zerolog.Logger) *Client {
	return &Client{
		RateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		MaxRetries:  maxRetries,
		RetryDelay:  retryDelay,
		HTTPClient: &http.Client{
			Timeout:   httpTimeout,
			Transport: &jsonTransport{Base: http.DefaultTransport},
		},
		Logger:        logger,
		baseOverrides: baseOverrides,
	}
}

type jsonTransport struct {
	Base http.RoundTripper
}

func (t *jsonTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	return t.Base.RoundTrip(req)
}

func (c *Client) baseURL(network string) (string, error) {
	if base, ok := c.baseOverrides[network]; ok && base != "" {
		return base, nil
	}
	n, err := networks.Get(network)
	if err != nil {
		return "", err
	}
	return n.ServiceBaseURL, nil
}

// GetSafeInfo probes wallet existence and returns its on-chain metadata,
// including the contract version the hash verifier needs.
func (c *Client) GetSafeInfo(ctx context.Context, network, address string) (*SafeInfo, error) {
	base, err := c.baseURL(network)
	if err != nil {
		return nil, err
	}

	var info SafeInfo
	endpoint := fmt.Sprintf("%s/api/v1/safes/%s/", base, address)
	if err := c.getJSON(ctx, endpoint, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetTransactions lists multisig transactions for the wallet, restricted to
// those modified at or after modifiedSince when a checkpoint exists. Results
// are returned in service order; pagination is followed to exhaustion.
func (c *Client) GetTransactions(ctx context.Context, network, address string, modifiedSince *time.Time) ([]models.SafeTransaction, error) {
	base, err := c.baseURL(network)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if modifiedSince != nil {
		query.Set("modified__gte", modifiedSince.UTC().Format(time.RFC3339))
	}
	endpoint := fmt.Sprintf("%s/api/v2/safes/%s/multisig-transactions/", base, address)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var all []models.SafeTransaction
	for endpoint != "" {
		var page transactionPage
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint = *page.Next
	}

	c.Logger.Debug().
		Str("network", network).
		Str("safe", address).
		Int("count", len(all)).
		Msg("Fetched multisig transactions")

	return all, nil
}

// getJSON performs a rate-limited GET with retries and decodes the response.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if err := c.RateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %v", err)
	}

	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func(body io.ReadCloser) {
			_ = body.Close()
		}(resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, resp.Status)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %v", err)
		}
		return nil
	})
	if err != nil {
		c.Logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Msg("Transaction service request failed")
		return err
	}
	return nil
}

// retry runs fn up to MaxRetries times. ErrNotFound is definitive and never
// retried.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var err error
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
	return err
}

// Close releases idle HTTP connections.
func (c *Client) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}
