package archive_test

import (
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/powermon/internal/archive"
	"codeberg.org/mutker/powermon/internal/powerlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceDisabled(t *testing.T) {
	collector, err := archive.NewService(archive.Config{Enabled: false})
	require.NoError(t, err)

	// The no-op collector accepts anything and never touches storage.
	err = collector.Record(context.Background(), powerlog.Event{Kind: powerlog.KindOn, At: 1})
	assert.NoError(t, err)
	assert.NoError(t, collector.Close())
}

func TestNewServiceRequiresDBPath(t *testing.T) {
	_, err := archive.NewService(archive.Config{Enabled: true})
	require.Error(t, err)
}

func TestServiceRecordAndQuery(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	collector, err := archive.NewService(archive.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)
	defer collector.Close()

	ctx := context.Background()
	require.NoError(t, collector.Record(ctx, powerlog.Event{Kind: powerlog.KindOn, At: 1000}))
	require.NoError(t, collector.Record(ctx, powerlog.Event{Kind: powerlog.KindOff, At: 2000, Duration: 300}))
}

func TestServiceRejectsUnknownKind(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	collector, err := archive.NewService(archive.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)
	defer collector.Close()

	err = collector.Record(context.Background(), powerlog.Event{Kind: "bogus", At: 1})
	require.Error(t, err)
}

func TestServiceHonorsContext(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	collector, err := archive.NewService(archive.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)
	defer collector.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = collector.Record(ctx, powerlog.Event{Kind: powerlog.KindOn, At: 1})
	require.Error(t, err)
}

func TestRepositorySchemaIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	repo, err := archive.NewRepository(archive.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, repo.Record(powerlog.Event{Kind: powerlog.KindOn, At: 100}))
	require.NoError(t, repo.Close())

	// Reopening against the same file must not re-run migrations.
	repo, err = archive.NewRepository(archive.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, repo.Record(powerlog.Event{Kind: powerlog.KindOff, At: 200, Duration: 50}))
	require.NoError(t, repo.Close())
}
