package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/pkg/kvstore/memstore"
	"github.com/yigit/musicschool/internal/pkg/kvstore/testsuite"
)

func TestSuite(t *testing.T) {
	store := memstore.New()
	defer func() { require.NoError(t, store.Close()) }()

	testsuite.RunTests(t, store)
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestPingAfterClose(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}
