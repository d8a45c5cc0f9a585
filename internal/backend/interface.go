package backend

import (
	"context"

	"konto/internal/persist"
)

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the persistence gateway and optional cleanup function.
type Result struct {
	Gateway persist.Gateway
	Cleanup CleanupFunc
}

// Factory creates persistence gateways based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// json specific
	JSONSnapshotPath string

	// sqlite specific
	SQLiteDBPath string
}

// Type selects the persistence backend.
type Type string

const (
	JSONBackend   Type = "json"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case JSONBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
