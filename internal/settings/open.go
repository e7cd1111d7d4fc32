package settings

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskbridge/internal/config"
)

// Open returns the Store selected by cfg, wrapped in a Redis cache when
// cfg.Redis.URL is set.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (Store, error) {
	var (
		base Store
		err  error
	)
	switch cfg.Settings.Backend {
	case config.BackendFile, "":
		base, err = OpenFile(cfg.SettingsPath())
	case config.BackendSQLite:
		base, err = OpenSQLite(cfg.SettingsPath())
	case config.BackendAzure:
		base, err = OpenTable(ctx, cfg.Settings.AzureConnectionString, cfg.Settings.AzureTable)
	case config.BackendMemory:
		base = NewMemory()
	default:
		return nil, fmt.Errorf("unknown settings backend: %q", cfg.Settings.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Redis.URL == "" {
		return base, nil
	}
	opts, err := parseRedisURL(cfg.Redis.URL)
	if err != nil {
		base.Close()
		return nil, err
	}
	return NewCache(base, redis.NewClient(opts), cfg.Redis.TTL, logger), nil
}

// parseRedisURL accepts a redis:// URL or an Azure-style
// "host:port,password=...,ssl=true" connection string.
func parseRedisURL(conn string) (*redis.Options, error) {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	if strings.TrimSpace(parts[0]) == "" || strings.Contains(parts[0], "://") {
		return nil, fmt.Errorf("invalid redis url: %q", conn)
	}
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
