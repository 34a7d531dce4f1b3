// Package store selects and initializes the collector's storage backend.
//
//   - influxdb: the time-series database from the credentials file (default)
//   - redis:    latest value per measurement and station
//   - memory:   in-process only, for dry runs
//
// Remote backends are pinged during initialization so a broken configuration
// fails before any API call is made.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/velostat/cmd/collector/config"
	"github.com/HatiCode/velostat/pkg/storage"
)

const pingTimeout = 5 * time.Second

// New creates the backend named by cfg.Store.
func New(ctx context.Context, cfg *config.Config, file *config.File, logger *slog.Logger) (storage.Store, error) {
	var st storage.Store

	switch cfg.Store {
	case "influxdb":
		params, err := storage.ParseConnParams(file.InfluxDB.URL, file.InfluxDB.User, file.InfluxDB.Password, file.InfluxDB.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("initializing influxdb storage",
			"host", params.Host,
			"port", params.Port,
			"tls", params.TLS,
			"database", params.Database,
		)
		st, err = storage.NewInfluxStore(params, logger)
		if err != nil {
			return nil, err
		}

	case "redis":
		logger.Info("initializing redis storage",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"ttl", cfg.RedisTTL,
		)
		var err error
		st, err = storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, err
		}

	case "memory":
		logger.Info("initializing in-memory storage")
		return storage.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Store)
	}

	if p, ok := st.(storage.Pinger); ok {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			st.Close()
			return nil, err
		}
	}

	logger.Info("storage initialized", "store", cfg.Store)
	return st, nil
}
