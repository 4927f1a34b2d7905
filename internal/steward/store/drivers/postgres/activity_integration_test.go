//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/internal/steward/store/drivers/postgres"
	"github.com/aussiebroadwan/steward/internal/steward/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestActivityLogContract(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("steward"),
		postgrescontainer.WithUsername("steward"),
		postgrescontainer.WithPassword("steward"),
		postgrescontainer.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Each subtest gets its own table inside the shared container.
	var n int
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		st, err := postgres.NewStore(ctx, dsn, "ledger_"+string(rune('a'+n)))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })

		require.NoError(t, st.ApplyMigrations())
		return st
	})
}
