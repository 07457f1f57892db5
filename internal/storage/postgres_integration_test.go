//go:build integration

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/cuongbtq/mediajobs/shared/postgresql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a disposable PostgreSQL container with the schema migrated
func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "mediajobs",
				"POSTGRES_PASSWORD": "mediajobs",
				"POSTGRES_DB":       "mediajobs",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	client, err := postgresql.NewClient(ctx, &postgresql.Config{
		Host:         host,
		Port:         port.Int(),
		User:         "mediajobs",
		Password:     "mediajobs",
		Database:     "mediajobs",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, Migrate(client.GetDB().DB))
	return client.GetDB()
}

func newJob(inputKey string, createdAt time.Time) domain.Job {
	return domain.Job{
		ID:          uuid.NewString(),
		InputKey:    inputKey,
		SubjectID:   "nft-1",
		RequesterID: "0xabc",
		Prompt:      "a dragon",
		State:       domain.StatePending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestPostgres_JobLifecycle(t *testing.T) {
	db := startPostgres(t)
	repo := NewJobRepository(db, testLogger())
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("concurrent submissions share one active job", func(t *testing.T) {
		const callers = 8
		ids := make([]string, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				job, _, err := repo.CreateOrGet(ctx, newJob("dedup-key", now))
				assert.NoError(t, err)
				ids[i] = job.ID
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("compare and swap guards the expected state", func(t *testing.T) {
		created, isNew, err := repo.CreateOrGet(ctx, newJob("cas-key", now))
		require.NoError(t, err)
		require.True(t, isNew)

		next := created
		next.State = domain.StateProcessing
		next.UpdatedAt = now.Add(time.Second)

		swapped, ok, err := repo.CompareAndSwap(ctx, domain.StatePending, next)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.StateProcessing, swapped.State)

		_, ok, err = repo.CompareAndSwap(ctx, domain.StatePending, next)
		require.NoError(t, err)
		assert.False(t, ok)

		done := swapped
		done.State = domain.StateCompleted
		done.Artifact = "https://cdn.example/a.png"
		done.UpdatedAt = now.Add(2 * time.Second)
		_, ok, err = repo.CompareAndSwap(ctx, domain.StateProcessing, done)
		require.NoError(t, err)
		require.True(t, ok)

		// a terminal job frees its input key
		again, isNew, err := repo.CreateOrGet(ctx, newJob("cas-key", now.Add(3*time.Second)))
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.NotEqual(t, created.ID, again.ID)

		loaded, err := repo.GetJobByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, loaded.State)
		assert.Equal(t, "https://cdn.example/a.png", loaded.Artifact)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		_, err := repo.GetJobByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("listing pages newest first", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			job := newJob(uuid.NewString(), now.Add(time.Duration(10+i)*time.Second))
			job.RequesterID = "0xpager"
			_, _, err := repo.CreateOrGet(ctx, job)
			require.NoError(t, err)
		}

		first, err := repo.ListJobs(ctx, domain.JobFilter{RequesterID: "0xpager", PageSize: 2})
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

		last := first[len(first)-1]
		rest, err := repo.ListJobs(ctx, domain.JobFilter{
			RequesterID: "0xpager",
			PageSize:    2,
			Cursor:      &domain.JobCursor{CreatedAt: last.CreatedAt, JobID: last.ID},
		})
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.True(t, rest[0].CreatedAt.Before(last.CreatedAt))
	})

	t.Run("stale and terminal scans", func(t *testing.T) {
		stale, err := repo.ListStale(ctx, domain.StatePending, now.Add(time.Hour), 100)
		require.NoError(t, err)
		assert.NotEmpty(t, stale)
		for _, job := range stale {
			assert.Equal(t, domain.StatePending, job.State)
		}

		terminal, err := repo.ListTerminalSince(ctx, now, 100)
		require.NoError(t, err)
		require.NotEmpty(t, terminal)
		for _, job := range terminal {
			assert.True(t, job.State.Terminal())
		}
	})
}

func TestPostgres_Notifications(t *testing.T) {
	db := startPostgres(t)
	jobs := NewJobRepository(db, testLogger())
	repo := NewNotificationRepository(db, testLogger())
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	job, _, err := jobs.CreateOrGet(ctx, newJob("notify-key", now))
	require.NoError(t, err)

	require.NoError(t, repo.Subscribe(ctx, job.ID, []string{"0xabc", "0xdef"}, now))
	// subscribing twice keeps one row per consumer
	require.NoError(t, repo.Subscribe(ctx, job.ID, []string{"0xabc"}, now))

	subscribers, err := repo.Subscribers(ctx, job.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0xabc", "0xdef"}, subscribers)

	n := domain.Notification{ID: uuid.NewString(), JobID: job.ID, ConsumerID: "0xabc", CreatedAt: now}
	inserted, err := repo.InsertIfAbsent(ctx, n)
	require.NoError(t, err)
	assert.True(t, inserted)

	duplicate := n
	duplicate.ID = uuid.NewString()
	inserted, err = repo.InsertIfAbsent(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := repo.UnreadCount(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.ErrorIs(t, repo.MarkRead(ctx, n.ID, "0xdef"), domain.ErrForbidden)
	assert.ErrorIs(t, repo.MarkRead(ctx, uuid.NewString(), "0xabc"), domain.ErrNotFound)
	require.NoError(t, repo.MarkRead(ctx, n.ID, "0xabc"))

	marked, err := repo.MarkAllRead(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	list, err := repo.List(ctx, "0xabc", domain.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}
