package backend

import (
	"context"
	"fmt"
	"log/slog"

	"konto/internal/persist"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case JSONBackend:
		return f.createJSONBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createJSONBackend(config Config) (*Result, error) {
	if config.JSONSnapshotPath == "" {
		return nil, fmt.Errorf("json snapshot path is required for json backend")
	}

	gateway := persist.NewJSONGateway(config.JSONSnapshotPath)
	f.logger.Info("Initialized JSON backend", "path", config.JSONSnapshotPath)

	return &Result{Gateway: gateway}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	if config.SQLiteDBPath == "" {
		return nil, fmt.Errorf("sqlite database path is required for sqlite backend")
	}

	gateway, err := persist.NewSQLiteGateway(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite gateway: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Gateway: gateway,
		Cleanup: gateway.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	f.logger.Info("Initialized memory backend")
	return &Result{Gateway: persist.NewMemoryGateway()}, nil
}
