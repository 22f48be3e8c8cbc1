package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeString(t *testing.T) {
	assert.Equal(t, "site", ScopeSite.String())
	assert.Equal(t, "network", ScopeNetwork.String())
	assert.Equal(t, "blog", ScopeBlog.String())
	assert.Equal(t, "user", ScopeUser.String())
	assert.Equal(t, "unknown", Scope(99).String())
}

func TestParseScope(t *testing.T) {
	for value, want := range map[string]Scope{
		"site":    ScopeSite,
		"NETWORK": ScopeNetwork,
		"blog":    ScopeBlog,
		"user":    ScopeUser,
	} {
		got, ok := ParseScope(value)
		require.True(t, ok, "ParseScope(%q)", value)
		assert.Equal(t, want, got)
	}

	_, ok := ParseScope("nope")
	assert.False(t, ok)
}

func TestSiteAndNetworkContexts(t *testing.T) {
	assert.Equal(t, ScopeSite, SiteContext().Scope())
	assert.Equal(t, ScopeNetwork, NetworkContext().Scope())
}

func TestBlogContextValidatesID(t *testing.T) {
	sc, err := BlogContext(7)
	require.NoError(t, err)
	assert.Equal(t, ScopeBlog, sc.Scope())
	assert.Equal(t, int64(7), sc.BlogID())

	_, err = BlogContext(0)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = BlogContext(-1)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestUserContextValidatesInput(t *testing.T) {
	sc, err := UserContext(42, UserStorageOption, true)
	require.NoError(t, err)
	assert.Equal(t, ScopeUser, sc.Scope())
	assert.Equal(t, int64(42), sc.UserID())
	assert.Equal(t, UserStorageOption, sc.UserStorage())
	assert.True(t, sc.UserGlobal())

	_, err = UserContext(0, UserStorageMeta, false)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = UserContext(42, UserStorage("bogus"), false)
	assert.ErrorIs(t, err, ErrConfiguration)
}
