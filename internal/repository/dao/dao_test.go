package dao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgres starts a throwaway Postgres container. Tests are skipped
// when Docker is unavailable or -short is set.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=scav_hunt_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})
	_ = resource.Expire(120)

	var db *gorm.DB
	dsn := fmt.Sprintf("host=localhost port=%v user=postgres password=postgres dbname=scav_hunt_test sslmode=disable",
		resource.GetPort("5432/tcp"))
	err = pool.Retry(func() error {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})
	require.NoError(t, err)

	require.NoError(t, InitTables(db))

	return db
}

func TestJournalDAO(t *testing.T) {
	db := setupPostgres(t)
	journal := NewJournalDAO(db)
	ctx := context.Background()

	record := EventRecord{
		ID:         "evt-1",
		Kind:       "station.visit_recorded",
		EntityKey:  "team:team-1",
		OccurredAt: time.Now().UTC().Truncate(time.Microsecond),
		Payload:    `{"id":"evt-1"}`,
	}

	inserted, err := journal.Insert(ctx, record)
	require.NoError(t, err)
	assert.False(t, inserted.Processed)

	// Duplicate IDs surface the sentinel.
	_, err = journal.Insert(ctx, record)
	assert.ErrorIs(t, err, ErrEventExists)

	second := record
	second.ID = "evt-2"
	second.OccurredAt = record.OccurredAt.Add(time.Second)
	_, err = journal.Insert(ctx, second)
	require.NoError(t, err)

	unprocessed, err := journal.FindUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unprocessed, 2)
	// Oldest first.
	assert.Equal(t, "evt-1", unprocessed[0].ID)

	require.NoError(t, journal.MarkProcessed(ctx, "evt-1"))

	unprocessed, err = journal.FindUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, "evt-2", unprocessed[0].ID)

	assert.ErrorIs(t, journal.MarkProcessed(ctx, "ghost"), ErrEventNotFound)
}

func TestNotificationDAO(t *testing.T) {
	db := setupPostgres(t)
	notifications := NewNotificationDAO(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 1; i <= 3; i++ {
		record := NotificationRecord{
			ID:             fmt.Sprintf("n-%d", i),
			Kind:           "notification",
			Classification: "general",
			Title:          fmt.Sprintf("Notice %d", i),
			Targets:        `[]`,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		_, err := notifications.Insert(ctx, record)
		require.NoError(t, err)
	}

	_, err := notifications.Insert(ctx, NotificationRecord{
		ID: "n-1", Kind: "notification", Classification: "general", Targets: `[]`,
	})
	assert.ErrorIs(t, err, ErrNotificationExists)

	// Newest first, with paging.
	page, err := notifications.FindAll(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n-3", page[0].ID)
	assert.Equal(t, "n-2", page[1].ID)

	page, err = notifications.FindAll(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "n-1", page[0].ID)
}
