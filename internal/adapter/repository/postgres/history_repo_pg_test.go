package postgres

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHistoryRepository_Postgres runs against a real database when TEST_POSTGRES_DSN is set
func TestHistoryRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	db, err := NewDB(ctx, dsn, PoolConfig{MaxOpenConns: 8})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migration is idempotent")

	repo := NewHistoryRepository(db)
	input, decision := scenario(t)

	const writers = 16
	var wg sync.WaitGroup
	ids := make(chan int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := repo.Append(ctx, input, decision)
			if assert.NoError(t, err) {
				ids <- record.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	require.Len(t, seen, writers)

	records, err := repo.ListAll(ctx)
	require.NoError(t, err)
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i-1].ID, records[i].ID)
	}
	assert.Equal(t, decision, records[0].Decision)

	for id := range seen {
		require.NoError(t, repo.Delete(ctx, id))
	}
}
