// Package tap implements the client for the BOA archive: synchronous
// ADQL queries over the TAP protocol, bulk file retrieval, and
// catalog metadata listing.
package tap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultQueryURL is the archive's TAP endpoint.
	DefaultQueryURL = "https://boa.esac.esa.int/boa-tap/tap"
	// DefaultRetrieveURL is the archive's bulk-download endpoint.
	DefaultRetrieveURL = "https://boa.esac.esa.int/boa-sl"
	// DefaultTimeout bounds a single request round trip.
	DefaultTimeout = 2 * time.Minute
	// DefaultMaxRows caps synchronous query results.
	DefaultMaxRows = 5000
)

// Credentials is the basic-auth login/password pair for the archive.
type Credentials struct {
	Login    string
	Password string
}

func (c Credentials) empty() bool {
	return c.Login == "" && c.Password == ""
}

// Config holds everything needed to construct a Client. The zero
// value of every field has a usable default except Credentials: a
// client without credentials is constructible, but authenticated
// operations fail with ErrNoCredentials.
type Config struct {
	// QueryURL is the base TAP endpoint, without the /sync suffix.
	QueryURL string
	// RetrieveURL is the base bulk-download endpoint.
	RetrieveURL string
	Credentials Credentials
	// Timeout applies per request round trip.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client talks to the archive. It is safe to keep using a Client
// after a failed call; every operation is independent and the only
// state carried across calls is the immutable configuration.
type Client struct {
	queryURL    string
	retrieveURL string
	creds       Credentials
	httpClient  *http.Client
	logger      *slog.Logger
}

// New initializes the client from config, filling in defaults.
func New(cfg Config) (*Client, error) {
	queryURL := strings.TrimRight(cfg.QueryURL, "/")
	if queryURL == "" {
		queryURL = DefaultQueryURL
	}
	retrieveURL := strings.TrimRight(cfg.RetrieveURL, "/")
	if retrieveURL == "" {
		retrieveURL = DefaultRetrieveURL
	}

	for _, u := range []string{queryURL, retrieveURL} {
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint URL %q: %w", u, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid endpoint URL %q: missing scheme or host", u)
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		queryURL:    queryURL,
		retrieveURL: retrieveURL,
		creds:       cfg.Credentials,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

const maxErrorBodyBytes = 4096

// get issues one authenticated GET against the archive. Every remote
// operation of the client funnels through here: basic auth, status
// checking and failure logging happen in exactly one place. params
// may be nil for URLs that already carry their query component.
//
// On success the caller owns resp.Body and must close it.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	requestID := uuid.New().String()

	if c.creds.empty() {
		c.logger.Error("request rejected", "id", requestID, "url", rawURL, "error", ErrNoCredentials)
		return nil, ErrNoCredentials
	}

	if params != nil {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.SetBasicAuth(c.creds.Login, c.creds.Password)

	c.logger.Debug("issuing request", "id", requestID, "url", rawURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", "id", requestID, "url", rawURL, "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()

		statusErr := &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(body)),
		}
		c.logger.Error("request failed", "id", requestID, "url", rawURL, "error", statusErr)
		return nil, statusErr
	}

	return resp, nil
}
