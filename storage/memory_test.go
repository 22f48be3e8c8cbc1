package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterCRUD(t *testing.T) {
	backend := NewMemoryBackend()
	adapter := backend.Adapter(SiteContext())
	ctx := context.Background()

	_, found := adapter.Read(ctx, "app")
	assert.False(t, found)

	require.True(t, adapter.Create(ctx, "app", map[string]any{"port": 8080}, true))
	values, found := adapter.Read(ctx, "app")
	require.True(t, found)
	assert.Equal(t, map[string]any{"port": 8080}, values)

	// Duplicate create must be refused.
	assert.False(t, adapter.Create(ctx, "app", map[string]any{"port": 1}, false))

	require.True(t, adapter.Update(ctx, "app", map[string]any{"port": 9090}))
	values, _ = adapter.Read(ctx, "app")
	assert.Equal(t, map[string]any{"port": 9090}, values)

	// Updating an absent row is a failure, not an upsert.
	assert.False(t, adapter.Update(ctx, "other", map[string]any{"k": 1}))
}

func TestMemoryAdapterDetachesValues(t *testing.T) {
	backend := NewMemoryBackend()
	adapter := backend.Adapter(SiteContext())
	ctx := context.Background()

	payload := map[string]any{"nested": map[string]any{"k": 1}}
	require.True(t, adapter.Create(ctx, "app", payload, false))

	payload["nested"].(map[string]any)["k"] = 2
	values, _ := adapter.Read(ctx, "app")
	assert.Equal(t, 1, values["nested"].(map[string]any)["k"])

	values["nested"].(map[string]any)["k"] = 3
	again, _ := adapter.Read(ctx, "app")
	assert.Equal(t, 1, again["nested"].(map[string]any)["k"])
}

func TestMemoryScopesAreIsolated(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	blog3, err := BlogContext(3)
	require.NoError(t, err)
	blog4, err := BlogContext(4)
	require.NoError(t, err)

	require.True(t, backend.Adapter(SiteContext()).Create(ctx, "app", map[string]any{"who": "site"}, false))
	require.True(t, backend.Adapter(blog3).Create(ctx, "app", map[string]any{"who": "blog3"}, false))
	require.True(t, backend.Adapter(blog4).Create(ctx, "app", map[string]any{"who": "blog4"}, false))

	values, found := backend.Adapter(blog3).Read(ctx, "app")
	require.True(t, found)
	assert.Equal(t, "blog3", values["who"])
	assert.Equal(t, 3, backend.Len())
}

func TestMemoryAutoloadOnlyForSite(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	assert.True(t, backend.Adapter(SiteContext()).SupportsAutoload())
	assert.False(t, backend.Adapter(NetworkContext()).SupportsAutoload())

	require.True(t, backend.Adapter(SiteContext()).Create(ctx, "site_row", nil, true))
	autoload, found := backend.Autoload(SiteContext(), "site_row")
	require.True(t, found)
	assert.True(t, autoload)

	// A network create silently drops the flag.
	require.True(t, backend.Adapter(NetworkContext()).Create(ctx, "net_row", nil, true))
	autoload, found = backend.Autoload(NetworkContext(), "net_row")
	require.True(t, found)
	assert.False(t, autoload)
}

func TestMemoryUserOptionPrefixing(t *testing.T) {
	backend := NewMemoryBackend(MemoryWithPrefix("wp_"))
	ctx := context.Background()

	local, err := UserContext(9, UserStorageOption, false)
	require.NoError(t, err)
	global, err := UserContext(9, UserStorageOption, true)
	require.NoError(t, err)
	meta, err := UserContext(9, UserStorageMeta, false)
	require.NoError(t, err)

	require.True(t, backend.Adapter(local).Create(ctx, "prefs", map[string]any{"who": "local"}, false))
	require.True(t, backend.Adapter(global).Create(ctx, "prefs", map[string]any{"who": "global"}, false))

	values, found := backend.Adapter(local).Read(ctx, "prefs")
	require.True(t, found)
	assert.Equal(t, "local", values["who"])

	values, found = backend.Adapter(global).Read(ctx, "prefs")
	require.True(t, found)
	assert.Equal(t, "global", values["who"])
	assert.Equal(t, 2, backend.Len())

	// Global option rows and plain meta rows share a key space.
	assert.False(t, backend.Adapter(meta).Create(ctx, "prefs", map[string]any{"who": "meta"}, false))
	values, _ = backend.Adapter(meta).Read(ctx, "prefs")
	assert.Equal(t, "global", values["who"])
}
