package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/adminkit/internal/store"
)

func seedMembers(t *testing.T, m *Memory, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := m.Save(context.Background(), map[string]any{"name": name})
		require.NoError(t, err)
	}
}

func TestMemoryCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.Save(ctx, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["name"])

	created["name"] = "Ada L."
	_, err = m.Save(ctx, created)
	require.NoError(t, err)
	got, err = m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got["name"])

	require.NoError(t, m.Delete(ctx, id))
	_, err = m.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, id), ErrNotFound)
}

func TestMemoryListPagination(t *testing.T) {
	m := NewMemory()
	seedMembers(t, m, "a", "b", "c", "d", "e")

	res, err := m.List(context.Background(), store.ListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "c", res.Items[0]["name"])

	res, err = m.List(context.Background(), store.ListParams{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	res, err = m.List(context.Background(), store.ListParams{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestMemoryListFilter(t *testing.T) {
	m := NewMemory()
	seedMembers(t, m, "Ada Lovelace", "Alan Turing", "Grace Hopper")

	res, err := m.List(context.Background(), store.ListParams{
		Page: 1, Limit: 10,
		Filter: map[string]string{"name": "ada"},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Ada Lovelace", res.Items[0]["name"])
	assert.Equal(t, 1, res.Total)
}
