package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/Freeeeeet/slot_swap/internal/service"
)

// setupTestDB поднимает PostgreSQL в контейнере и применяет миграции.
// Контейнер удаляется по завершении теста.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("swapdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer migrator.Close()

	require.NoError(t, migrator.Run(ctx), "failed to apply migrations")

	return pool
}

type pgServices struct {
	pool        *pgxpool.Pool
	store       *repository.Store
	users       *service.UserService
	slots       *service.SlotService
	coordinator *service.SwapCoordinator
}

func newPGServices(t *testing.T, pool *pgxpool.Pool, isoLevel pgx.TxIsoLevel) *pgServices {
	t.Helper()

	logger := zaptest.NewLogger(t)
	st := repository.NewStore(pool, isoLevel)
	registry := service.NewSlotRegistry()

	return &pgServices{
		pool:        pool,
		store:       st,
		users:       service.NewUserService(st, logger),
		slots:       service.NewSlotService(st, registry, logger),
		coordinator: service.NewSwapCoordinator(st, registry, logger),
	}
}
