//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

func TestInitStore_Memory(t *testing.T) {
	useConfig(t, memoryConfig())

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	r, ok := st.(*store.Retrying)
	require.True(t, ok, "store should be wrapped in the retrying decorator")
	assert.IsType(t, &store.Memory{}, r.Unwrap())
}

func TestInitStore_SQLiteMigrates(t *testing.T) {
	c := memoryConfig()
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "hrtaj.db")
	useConfig(t, c)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	rows, err := st.Select(context.Background(), store.From("listings").Limit(1))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInitStore_InvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.Store.Driver = "postgres"
	useConfig(t, c)

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	c.Store.Driver = "oracle"
	_, err = initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(0))
	assert.Nil(t, newLimiter(-1))

	l := newLimiter(0.5)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())

	l = newLimiter(20)
	require.NotNil(t, l)
	assert.Equal(t, 20, l.Burst())
}
