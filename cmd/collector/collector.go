// Package main implements the velostat collector.
// The collector fetches the live state of every station of a JCDecaux
// contract, turns each station into three occupancy points and writes them
// to a time-series store in a single batch.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HatiCode/velostat/cmd/collector/metrics"
	"github.com/HatiCode/velostat/pkg/jcdecaux"
	"github.com/HatiCode/velostat/pkg/points"
	"github.com/HatiCode/velostat/pkg/storage"
)

var errNoCollection = errors.New("no collection has completed yet")

// StationSource returns the current state of a contract's stations.
// *jcdecaux.Client satisfies it.
type StationSource interface {
	ListStations(ctx context.Context, contract string) ([]jcdecaux.Station, error)
}

// Status summarizes the last collection.
type Status struct {
	Contract    string    `json:"contract"`
	LastRun     time.Time `json:"lastRun"`
	LastSuccess time.Time `json:"lastSuccess"`
	Stations    int       `json:"stations"`
	Skipped     int       `json:"skipped"`
	Points      int       `json:"points"`
	APIError    string    `json:"apiError,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Collector orchestrates one collection: fetch → map → write.
type Collector struct {
	contract string
	source   StationSource
	store    storage.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	status  Status
	lastErr error
}

// New creates a new Collector.
func New(contract string, source StationSource, store storage.Store, m *metrics.Metrics, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		contract: contract,
		source:   source,
		store:    store,
		metrics:  m,
		logger:   logger,
		status:   Status{Contract: contract},
		lastErr:  errNoCollection,
	}
}

// Run collects at regular intervals, starting immediately.
// Blocks until context is canceled.
func (c *Collector) Run(ctx context.Context, interval time.Duration) error {
	c.logger.Info("starting collection loop", "interval", interval, "contract", c.contract)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := c.Tick(ctx); err != nil {
		c.logger.Error("collection tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collection loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil {
				c.logger.Error("collection tick failed", "error", err)
			}
		}
	}
}

// Tick performs one collection. API failures are soft: they leave the batch
// empty and Tick returns nil. Only a failed store write is returned.
func (c *Collector) Tick(ctx context.Context) error {
	start := time.Now()
	c.logger.Debug("starting collection tick")

	stations, fetchDuration, apiErr := c.fetch(ctx)

	batch, skipped := points.FromStations(stations)
	for _, err := range skipped {
		c.logger.Warn("skipping station", "error", err)
	}
	c.metrics.AddStationsSkipped(len(skipped))

	status := Status{
		Contract: c.contract,
		LastRun:  start,
		Stations: len(stations),
		Skipped:  len(skipped),
	}
	if apiErr != nil {
		status.APIError = apiErr.Error()
	}

	if len(batch) == 0 {
		if apiErr == nil {
			status.LastSuccess = c.markSuccess()
		}
		c.logger.Info("no points to write", "contract", c.contract, "stations", len(stations))
		c.record(status, nil)
		return nil
	}

	writeDuration, err := c.write(ctx, batch)
	if err != nil {
		err = fmt.Errorf("write: %w", err)
		status.Error = err.Error()
		c.record(status, err)
		return err
	}

	status.Points = len(batch)
	status.LastSuccess = c.markSuccess()
	c.record(status, nil)

	c.logger.Info("collection tick complete",
		"contract", c.contract,
		"stations", len(stations),
		"skipped", len(skipped),
		"points", len(batch),
		"fetch_ms", fetchDuration.Milliseconds(),
		"write_ms", writeDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// fetch lists the contract's stations. On failure it returns no stations
// together with the API error so the tick can go on.
func (c *Collector) fetch(ctx context.Context) ([]jcdecaux.Station, time.Duration, error) {
	start := time.Now()

	stations, err := c.source.ListStations(ctx, c.contract)
	duration := time.Since(start)
	c.metrics.ObserveAPIRequest("stations", duration)

	if err != nil {
		c.metrics.RecordAPIError("stations", jcdecaux.KindOf(err).String())
		c.metrics.SetStationsFetched(0)
		c.logger.Warn("proceeding without stations",
			"contract", c.contract,
			"error", err,
		)
		return nil, duration, err
	}

	c.metrics.SetStationsFetched(len(stations))
	c.logger.Debug("fetched stations",
		"contract", c.contract,
		"stations", len(stations),
		"duration_ms", duration.Milliseconds(),
	)

	return stations, duration, nil
}

// write sends the whole batch to the store in one call.
func (c *Collector) write(ctx context.Context, batch []points.Point) (time.Duration, error) {
	start := time.Now()

	err := c.store.Write(ctx, batch)
	duration := time.Since(start)
	c.metrics.ObserveWrite(duration, len(batch), err)
	if err != nil {
		return duration, err
	}

	c.logger.Debug("wrote points",
		"points", len(batch),
		"duration_ms", duration.Milliseconds(),
	)

	return duration, nil
}

func (c *Collector) markSuccess() time.Time {
	now := time.Now()
	c.metrics.MarkSuccess(now)
	return now
}

// record stores the outcome of a tick. Until one tick has succeeded the
// collector stays unhealthy, even when the tick returned nil.
func (c *Collector) record(status Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status.LastSuccess.IsZero() {
		status.LastSuccess = c.status.LastSuccess
	}
	if err == nil && status.LastSuccess.IsZero() {
		err = errNoCollection
		if status.APIError != "" {
			err = fmt.Errorf("%w: %s", errNoCollection, status.APIError)
		}
	}
	c.status = status
	c.lastErr = err
}

// Healthy returns the error of the last tick, or an error while no tick has
// succeeded yet. API failures after a successful tick do not make the
// collector unhealthy.
func (c *Collector) Healthy() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Status returns a summary of the last tick.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
