// Package storage holds the time-series sinks the collector writes to.
package storage

import (
	"context"

	"github.com/HatiCode/velostat/pkg/points"
)

// Store receives one batch of points per collection run.
type Store interface {
	// Write submits the whole batch in a single call.
	Write(ctx context.Context, batch []points.Point) error
	Close() error
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}
