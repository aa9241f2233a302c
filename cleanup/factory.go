package cleanup

import (
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/GoCodeAlone/storeadmin/config"
)

// FromConfig opens the ledger selected by cfg.Driver. The returned closer
// releases any connection and is never nil.
func FromConfig(cfg config.CleanupConfig) (Ledger, io.Closer, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryLedger(), nopCloser{}, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("cleanup: redis driver requires an address")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisLedger(client, cfg.RedisPrefix), client, nil
	case "sqlite":
		l, err := NewSQLiteLedger(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	default:
		return nil, nil, fmt.Errorf("cleanup: unknown driver %q", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
