package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	influx "github.com/influxdata/influxdb1-client/v2"

	"github.com/HatiCode/velostat/pkg/points"
)

const (
	// DefaultInfluxPort is used when the URL scheme is neither http nor https.
	DefaultInfluxPort = 8086

	// PrecisionMillis is the write precision; point timestamps are epoch ms.
	PrecisionMillis = "ms"

	defaultPingTimeout = 5 * time.Second
)

// ConnParams are the InfluxDB connection settings derived from a store URL.
type ConnParams struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	Database string
}

// ParseConnParams resolves host, port and TLS from rawURL.
//
// Without an explicit port, https maps to 443 with TLS, http to 80 without,
// and any other scheme to 8086 without TLS. With an explicit port, TLS is on
// only for https.
func ParseConnParams(rawURL, username, password, database string) (ConnParams, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ConnParams{}, fmt.Errorf("invalid influxdb url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return ConnParams{}, fmt.Errorf("invalid influxdb url %q: missing host", rawURL)
	}

	p := ConnParams{
		Host:     host,
		Username: username,
		Password: password,
		Database: database,
	}

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return ConnParams{}, fmt.Errorf("invalid influxdb port %q", portStr)
		}
		p.Port = port
		p.TLS = u.Scheme == "https"
		return p, nil
	}

	switch u.Scheme {
	case "https":
		p.Port, p.TLS = 443, true
	case "http":
		p.Port, p.TLS = 80, false
	default:
		p.Port, p.TLS = DefaultInfluxPort, false
	}
	return p, nil
}

// Addr returns the base address handed to the InfluxDB HTTP client.
func (p ConnParams) Addr() string {
	scheme := "http"
	if p.TLS {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// InfluxStore writes batches to an InfluxDB 1.x database.
type InfluxStore struct {
	client   influx.Client
	database string
	logger   *slog.Logger
}

// NewInfluxStore creates an HTTP client for p. No request is made until Ping
// or Write.
func NewInfluxStore(p ConnParams, logger *slog.Logger) (*InfluxStore, error) {
	if p.Database == "" {
		return nil, errors.New("influxdb: database is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c, err := influx.NewHTTPClient(influx.HTTPConfig{
		Addr:     p.Addr(),
		Username: p.Username,
		Password: p.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("influxdb client: %w", err)
	}

	return &InfluxStore{
		client:   c,
		database: p.Database,
		logger:   logger.With("component", "influxdb"),
	}, nil
}

// Ping checks the server is reachable. The context deadline, if any, bounds
// the wait.
func (s *InfluxStore) Ping(ctx context.Context) error {
	timeout := defaultPingTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	rtt, version, err := s.client.Ping(timeout)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	s.logger.Debug("influxdb ping", "version", version, "rtt_ms", rtt.Milliseconds())
	return nil
}

// Write submits batch as one write with millisecond precision.
func (s *InfluxStore) Write(ctx context.Context, batch []points.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bp, err := influx.NewBatchPoints(influx.BatchPointsConfig{
		Database:  s.database,
		Precision: PrecisionMillis,
	})
	if err != nil {
		return fmt.Errorf("influxdb batch: %w", err)
	}

	for _, p := range batch {
		pt, err := influx.NewPoint(p.Measurement, p.Tags, p.Fields(), p.Time())
		if err != nil {
			return fmt.Errorf("influxdb point %s: %w", p.Measurement, err)
		}
		bp.AddPoint(pt)
	}

	if err := s.client.Write(bp); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}

	s.logger.Debug("wrote batch", "database", s.database, "points", len(batch))
	return nil
}

// Query runs an InfluxQL statement against the store's database.
func (s *InfluxStore) Query(command string) (*influx.Response, error) {
	resp, err := s.client.Query(influx.NewQuery(command, s.database, PrecisionMillis))
	if err != nil {
		return nil, err
	}
	if resp.Error() != nil {
		return nil, resp.Error()
	}
	return resp, nil
}

func (s *InfluxStore) Close() error {
	return s.client.Close()
}
