package persist

import (
	"context"
	"errors"

	"konto/internal/core"
)

// ErrNoSnapshot is returned by Load and Backup when nothing was ever saved.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Gateway persists full store snapshots. Implementations must make Save
// atomic: a crash mid-save never leaves a torn snapshot behind.
type Gateway interface {
	Save(ctx context.Context, snap core.Snapshot) error
	Load(ctx context.Context) (core.Snapshot, error)
	Exists(ctx context.Context) (bool, error)
	// Backup copies the current snapshot aside and returns where it went.
	Backup(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

func persistErr(op string, err error) error {
	return &core.PersistenceError{Op: op, Err: err}
}
