package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

// setupTestDB starts a PostgreSQL container and applies the migrations.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("portal_test"),
		tcpostgres.WithUsername("portal"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zap.NewNop()
	require.NoError(t, Migrate(dsn, logger))
	pool, err := Connect(ctx, dsn, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", migrateURL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://h/db", migrateURL("pgx5://h/db"))
}

func TestStore_EntriesAndStatuses(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.CreateEntry(ctx, models.Entry{ID: id, TeamName: "Team A"}))
	assert.ErrorIs(t, s.CreateEntry(ctx, models.Entry{ID: id}), store.ErrConflict)

	e, err := s.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Team A", e.TeamName)
	for _, st := range models.Stages() {
		assert.Equal(t, models.StatusNotRegistered, e.StatusOf(st))
	}

	changed, err := s.SetEntryStatus(ctx, id, models.StageSemifinals, models.StatusInProgress)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.SetEntryStatus(ctx, id, models.StageSemifinals, models.StatusInProgress)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.SetEntryStatus(ctx, uuid.NewString(), models.StageBasic, models.StatusRegistered)
	assert.ErrorIs(t, err, store.ErrNotFound)

	entries, err := s.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusInProgress, entries[0].StatusOf(models.StageSemifinals))
}

func TestStore_RecordsMergeAndVersion(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, s.CreateEntry(ctx, models.Entry{ID: id}))

	rec, err := s.Get(ctx, id, models.StageFinals)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = s.Upsert(ctx, id, models.StageFinals, []byte(`{"lighting_change_from_semifinals":false,"props_usage":"なし"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)

	patch := models.Patch{"lighting": models.LightingInfo{DanceStartTiming: "板付き"}}
	require.NoError(t, s.Update(ctx, id, models.StageFinals, patch, rec.Version))
	assert.ErrorIs(t, s.Update(ctx, id, models.StageFinals, patch, rec.Version), store.ErrConflict)
	assert.ErrorIs(t, s.Update(ctx, id, models.StageSns, patch, 0), store.ErrNotFound)

	rec, err = s.Get(ctx, id, models.StageFinals)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Fields, &got))
	assert.JSONEq(t, `"なし"`, string(got["props_usage"]))
	assert.Contains(t, string(got["lighting"]), "板付き")

	_, err = s.Upsert(ctx, uuid.NewString(), models.StageBasic, []byte(`{}`))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Files(t *testing.T) {
	s := New(setupTestDB(t))
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, s.CreateEntry(ctx, models.Entry{ID: id}))

	ok, err := s.Exists(ctx, id, models.FileTypeVideo, models.PurposePreliminary)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AddFile(ctx, models.EntryFile{EntryID: id, FileType: "Video", Purpose: models.PurposePreliminary, Path: "p/1.mp4"}))
	ok, err = s.Exists(ctx, id, models.FileTypeVideo, models.PurposePreliminary)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, id, "", models.PurposePreliminary)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, id, "image", models.PurposePreliminary)
	require.NoError(t, err)
	assert.False(t, ok)
}
