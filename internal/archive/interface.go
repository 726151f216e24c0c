package archive

import (
	"context"

	"codeberg.org/mutker/powermon/internal/powerlog"
)

// Collector is the domain interface for long-term event archival. The
// bounded in-memory log keeps only the most recent transitions; the
// archive keeps every one for later export and analysis.
type Collector interface {
	Record(ctx context.Context, event powerlog.Event) error
	Close() error
}

// Repository defines the interface for archive storage.
type Repository interface {
	Record(event powerlog.Event) error
	Close() error
}
