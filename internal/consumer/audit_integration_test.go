//go:build integration
// +build integration

package consumer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/extracurricular/internal/events"
	"example.com/extracurricular/internal/persistence/postgres"
)

func TestProcessorWritesAuditLog(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	signedUp := events.NewEnrollment(events.TypeSignedUp, "chess", "Chess Club", "test@example.com", 3)
	unregistered := events.NewEnrollment(events.TypeUnregistered, "chess", "Chess Club", "test@example.com", 2)

	reader := &stubReader{
		messages: []kafka.Message{
			enrollmentMessage(t, signedUp, 1),
			enrollmentMessage(t, unregistered, 2),
			enrollmentMessage(t, signedUp, 1), // redelivery
		},
		after: contextCanceled,
	}
	handler := NewAuditHandler(postgres.NewAuditStore(pool))
	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.ErrorIs(t, processor.Run(runCtx), context.Canceled)
	require.Equal(t, 3, reader.commitCalls)

	rows, err := pool.Query(ctx, `SELECT event_type FROM enrollment_audit_log WHERE activity_id = $1 ORDER BY record_offset`, "chess")
	require.NoError(t, err)
	defer rows.Close()

	var types []string
	for rows.Next() {
		var eventType string
		require.NoError(t, rows.Scan(&eventType))
		types = append(types, eventType)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{events.TypeSignedUp, events.TypeUnregistered}, types)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("activities"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	migrationsPath := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
