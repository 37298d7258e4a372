package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Necesita Postgres: TEST_DATABASE_URL=postgres://... go test ./internal/infra/storage
func openTestRepo(t *testing.T) *SessionRepo {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return NewSessionRepo(db)
}

func TestSessionLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	guild := "test-" + uuid.NewString()

	id, err := repo.Begin(ctx, guild, 25, 5)
	require.NoError(t, err)
	require.NoError(t, repo.SetCompleted(ctx, id, 2))
	require.NoError(t, repo.Finish(ctx, id, 3, EndStopped))
	assert.ErrorIs(t, repo.Finish(ctx, id, 4, EndStopped), ErrNotFound, "already closed")

	got, err := repo.ListRecent(ctx, guild, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].CompletedStudy)
	require.NotNil(t, got[0].StoppedAt)
	require.NotNil(t, got[0].EndReason)
	assert.Equal(t, EndStopped, *got[0].EndReason)

	total, err := repo.TotalCompleted(ctx, guild, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestCloseDanglingByGuild(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	g1, g2 := "test-"+uuid.NewString(), "test-"+uuid.NewString()

	_, err := repo.Begin(ctx, g1, 25, 5)
	require.NoError(t, err)
	open2, err := repo.Begin(ctx, g2, 50, 10)
	require.NoError(t, err)

	n, err := repo.CloseDangling(ctx, []string{g1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.ListRecent(ctx, g1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, EndInterrupted, *got[0].EndReason)

	// g2 sigue abierta
	require.NoError(t, repo.Finish(ctx, open2, 0, EndStopped))
}
