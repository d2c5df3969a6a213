package analytics

import (
	"context"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/pkg/distlock"
	"github.com/ignite/marketing-analytics/internal/storage"
)

// RunStore persists run summaries and their output tables.
// Implementations must be safe for concurrent use.
type RunStore interface {
	SaveRun(ctx context.Context, run *storage.Run) error
	// GetRun returns storage.ErrRunNotFound for an unknown id.
	GetRun(ctx context.Context, id string) (*storage.Run, error)
	SaveArtifact(ctx context.Context, runID, name string, df dataframe.DataFrame) (string, error)
}

// ResultCache stores JSON-encodable results by key.
type ResultCache interface {
	// Get reports false on a miss.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}) error
}

// Locker hands out a lock per key.
type Locker interface {
	Lock(key string) distlock.DistLock
}

// Mailer delivers a rendered report and returns its message id.
type Mailer interface {
	Send(ctx context.Context, subject, body string) (string, error)
}

// Narrator writes a plain-language commentary for a rendered report.
type Narrator interface {
	Narrate(ctx context.Context, report string) (string, error)
}
