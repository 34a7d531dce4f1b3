// Package jcdecaux is a small client for the JCDecaux self-service bicycle API
// (https://developer.jcdecaux.com).
//
// Every call attaches the configured API key as the apiKey query parameter.
// Calls never panic: on transport failures, non-2xx statuses or undecodable
// bodies they log a warning and return an empty result together with an
// *APIError describing what went wrong. Nothing is retried or cached.
package jcdecaux

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
)

// DefaultBaseURL is the public JCDecaux VLS endpoint.
const DefaultBaseURL = "https://api.jcdecaux.com/vls"

// ErrorKind classifies an APIError.
type ErrorKind int

const (
	// KindTransport covers DNS failures, refused connections and timeouts.
	KindTransport ErrorKind = iota + 1
	// KindStatus is any non-2xx HTTP status.
	KindStatus
	// KindDecode means the body was not the JSON we expected.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// APIError is returned by every Client method that could not produce data.
type APIError struct {
	Kind       ErrorKind
	Path       string
	StatusCode int
	// Message is the provider's "error" field, when the body had one.
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("jcdecaux %s: status %d: %s", e.Path, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("jcdecaux %s: status %d", e.Path, e.StatusCode)
	default:
		return fmt.Sprintf("jcdecaux %s: %s: %v", e.Path, e.Kind, e.Err)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf returns the kind of the *APIError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindStatus && apiErr.StatusCode == http.StatusNotFound
}

// Config holds the client settings.
type Config struct {
	APIKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Version is the API version segment, v1 when <= 0.
	Version int
	// Timeout is applied to a default HTTP client. Zero means no client-side
	// timeout. Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the JCDecaux API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := cfg.Version
	if version <= 0 {
		version = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    fmt.Sprintf("%s/v%d", base, version),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.With("component", "jcdecaux"),
	}
}

// ListContracts returns every contract known to the API.
func (c *Client) ListContracts(ctx context.Context) ([]Contract, error) {
	contracts := []Contract{}
	if err := c.send(ctx, "/contracts", nil, &contracts); err != nil {
		c.logger.Warn("not able to get contracts from API", "error", err)
		return []Contract{}, err
	}
	return contracts, nil
}

// ListStations returns the stations of one contract, or of all contracts when
// contract is empty.
func (c *Client) ListStations(ctx context.Context, contract string) ([]Station, error) {
	params := url.Values{}
	if contract != "" {
		params.Set("contract", contract)
	}

	stations := []Station{}
	if err := c.send(ctx, "/stations", params, &stations); err != nil {
		c.logger.Warn("not able to get stations from API", "contract", contract, "error", err)
		return []Station{}, err
	}
	return stations, nil
}

// GetStation returns a single station. On failure the zero Station is
// returned alongside the error.
func (c *Client) GetStation(ctx context.Context, id int, contract string) (Station, error) {
	params := url.Values{}
	params.Set("contract", contract)

	var station Station
	if err := c.send(ctx, "/stations/"+strconv.Itoa(id), params, &station); err != nil {
		c.logger.Warn("not able to get station from API", "station", id, "contract", contract, "error", err)
		return Station{}, err
	}
	return station, nil
}

func (c *Client) send(ctx context.Context, path string, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return &APIError{Kind: KindTransport, Path: path, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &APIError{Kind: KindTransport, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransport, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Kind:       KindStatus,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindDecode, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from an error body, if present.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return ""
	}
	return e.Error
}
