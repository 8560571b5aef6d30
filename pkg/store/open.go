package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the json file for the file driver and the database for sqlite.
	Path  string
	Lists int

	Redis        *redis.Options
	InstanceName string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileStore(opts.Path, opts.Lists)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.Path, opts.Lists)
	case DriverRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis driver requires redis options")
		}
		s, err := NewRedisStore(opts.Redis, opts.InstanceName, opts.Lists)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
