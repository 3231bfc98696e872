package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/sirupsen/logrus"
)

const (
	defaultProviderTimeout   = 15 * time.Second
	providerMaxRetry         = 2
	providerRetryFactor      = 2.0
	providerRetryMinDelay    = 200 * time.Millisecond
	providerRetryMaxDelay    = 2 * time.Second
	providerErrorBodyPreview = 256
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrUnsupportedLeague = errors.New("unsupported league")
	ErrMissingAPIKey     = errors.New("provider api key is required")
)

var (
	GlobalProviderRegistry = make(map[entity.ProviderKey]entity.Provider)
)

func RegisterProvider(p entity.Provider) {
	GlobalProviderRegistry[p.Key()] = p
}

// StatusError is returned when a provider answers with a non 2xx status.
type StatusError struct {
	Provider   entity.ProviderKey
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}

	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET request and decodes the body into out. Server errors
// and rate limits are retried with jittered backoff.
func getJSON(ctx context.Context, client *http.Client, key entity.ProviderKey, endpoint string, params url.Values, out any) error {
	fullURL := endpoint
	if len(params) > 0 {
		fullURL = endpoint + "?" + params.Encode()
	}

	logger := logrus.WithField("provider", key)
	policy := infrastructure.RetryPolicy{
		MaxRetry: providerMaxRetry,
		Factor:   providerRetryFactor,
		MinDelay: providerRetryMinDelay,
		MaxDelay: providerRetryMaxDelay,
	}

	return infrastructure.Retry(ctx, logger, policy, func(ctx context.Context) error {
		err := doGetJSON(ctx, client, key, fullURL, out)

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return infrastructure.Permanent(err)
		}

		return err
	})
}

func doGetJSON(ctx context.Context, client *http.Client, key entity.ProviderKey, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", key, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, providerErrorBodyPreview))
		preview := util.TruncateText(strings.TrimSpace(string(body)), providerErrorBodyPreview)
		return &StatusError{Provider: key, StatusCode: resp.StatusCode, Body: preview}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", key, err)
	}

	return nil
}

func parseProviderTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.UTC(), nil
}

func normalizeLeague(league string) string {
	return strings.ToLower(strings.TrimSpace(league))
}
