package backend

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/adminkit/internal/store"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	be, err := OpenSQLite(context.Background(), db, "member")
	require.NoError(t, err)
	return be
}

func TestSQLiteRejectsBadResourceName(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = OpenSQLite(context.Background(), db, "members; DROP TABLE x")
	assert.Error(t, err)
}

func TestSQLiteCRUD(t *testing.T) {
	be := openTestDB(t)
	ctx := context.Background()

	created, err := be.Save(ctx, map[string]any{"name": "Ada", "status": "active"})
	require.NoError(t, err)
	id := created["id"].(string)

	got, err := be.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["name"])

	created["status"] = "suspended"
	_, err = be.Save(ctx, created)
	require.NoError(t, err)
	got, err = be.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "suspended", got["status"])

	require.NoError(t, be.Delete(ctx, id))
	_, err = be.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListFilterAndPaginate(t *testing.T) {
	be := openTestDB(t)
	ctx := context.Background()
	for _, name := range []string{"Ada", "Alan", "Grace", "Alonzo"} {
		_, err := be.Save(ctx, map[string]any{"name": name})
		require.NoError(t, err)
	}

	res, err := be.List(ctx, store.ListParams{
		Page: 1, Limit: 2,
		Filter: map[string]string{"name": "al"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total) // Alan, Alonzo
	assert.Len(t, res.Items, 2)

	res, err = be.List(ctx, store.ListParams{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Len(t, res.Items, 1)
}
