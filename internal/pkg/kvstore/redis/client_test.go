package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/pkg/kvstore/testsuite"
)

func startClient(t *testing.T, namespace string) (*Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client, err := OpenClient(context.Background(), Options{Addr: server.Addr(), Namespace: namespace})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

func TestSuite(t *testing.T) {
	client, _ := startClient(t, "")
	testsuite.RunTests(t, client)
}

func TestSuiteWithNamespace(t *testing.T) {
	client, _ := startClient(t, "escola:")
	testsuite.RunTests(t, client)
}

func TestNamespaceIsApplied(t *testing.T) {
	client, server := startClient(t, "escola:")
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "entitlements:07", []byte(`{"videoIds":[101]}`)))
	assert.True(t, server.Exists("escola:entitlements:07"))

	keys, err := client.List(ctx, "entitlements:")
	require.NoError(t, err)
	assert.Equal(t, []string{"entitlements:07"}, keys)
}

func TestInvalidConnection(t *testing.T) {
	_, err := OpenClient(context.Background(), Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.True(t, Error.Has(err))
}

func TestUnavailableServer(t *testing.T) {
	client, server := startClient(t, "")
	server.Close()

	_, err := client.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, Error.Has(err))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
	assert.Equal(t, "plain:", escapeGlob("plain:"))
}
