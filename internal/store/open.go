// internal/store/open.go
package store

import (
	"context"
	"fmt"

	"github.com/valpere/crosslink/internal/config"
)

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.RulesConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	case config.BackendFile, "":
		return NewFileBackend(cfg.Path)
	case config.BackendSQLite:
		path := cfg.Path
		if cfg.DSN != "" {
			path = cfg.DSN
		}
		return OpenSQLite(path, cfg.Table)
	case config.BackendPostgres:
		return OpenPostgres(cfg.DSN, cfg.Table)
	case config.BackendMySQL:
		return OpenMySQL(cfg.DSN, cfg.Table)
	case config.BackendMongoDB:
		return OpenMongo(ctx, MongoOptions{
			URI:        cfg.DSN,
			Database:   cfg.Database,
			Collection: cfg.Table,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported rules backend: %s", cfg.Backend)
	}
}

// OpenStore opens the configured backend and wraps it in a Store.
func OpenStore(ctx context.Context, cfg config.RulesConfig, opts ...Option) (*Store, error) {
	backend, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	key := cfg.Key
	if key == "" {
		key = config.DefaultRulesKey
	}
	s, err := New(backend, key, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}
