package storage

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates a scope context was constructed without a
// required parameter.
var ErrConfiguration = errors.New("storage: invalid scope configuration")

// Scope identifies the storage domain a settings row lives in.
type Scope int

const (
	// ScopeSite stores the row in the current site's options.
	ScopeSite Scope = iota
	// ScopeNetwork stores the row network-wide. Autoload is unsupported.
	ScopeNetwork
	// ScopeBlog stores the row in a specific sub-site's options.
	ScopeBlog
	// ScopeUser stores the row against a single user.
	ScopeUser
)

func (s Scope) String() string {
	switch s {
	case ScopeSite:
		return "site"
	case ScopeNetwork:
		return "network"
	case ScopeBlog:
		return "blog"
	case ScopeUser:
		return "user"
	default:
		return "unknown"
	}
}

// ParseScope converts a string representation into the corresponding Scope.
func ParseScope(value string) (Scope, bool) {
	switch value {
	case "site", "SITE":
		return ScopeSite, true
	case "network", "NETWORK":
		return ScopeNetwork, true
	case "blog", "BLOG":
		return ScopeBlog, true
	case "user", "USER":
		return ScopeUser, true
	default:
		return ScopeSite, false
	}
}

// UserStorage selects how a user-scoped row is keyed.
type UserStorage string

const (
	// UserStorageMeta keys the row directly by its main key.
	UserStorageMeta UserStorage = "meta"
	// UserStorageOption keys the row like a per-user option, prefixing the
	// main key with the backend prefix unless the context is global.
	UserStorageOption UserStorage = "option"
)

// Context is an immutable descriptor selecting a scope and its parameters.
// Construct one through SiteContext, NetworkContext, BlogContext or
// UserContext; required ids are validated at construction, never at first use.
type Context struct {
	scope       Scope
	blogID      int64
	userID      int64
	userStorage UserStorage
	userGlobal  bool
}

// SiteContext selects the current site's option storage.
func SiteContext() Context {
	return Context{scope: ScopeSite}
}

// NetworkContext selects network-wide storage.
func NetworkContext() Context {
	return Context{scope: ScopeNetwork}
}

// BlogContext selects a specific sub-site's option storage.
func BlogContext(blogID int64) (Context, error) {
	if blogID <= 0 {
		return Context{}, fmt.Errorf("%w: blog scope requires a blog id", ErrConfiguration)
	}
	return Context{scope: ScopeBlog, blogID: blogID}, nil
}

// UserContext selects per-user storage. kind chooses between meta and option
// keying; global is meaningful only for UserStorageOption.
func UserContext(userID int64, kind UserStorage, global bool) (Context, error) {
	if userID <= 0 {
		return Context{}, fmt.Errorf("%w: user scope requires a user id", ErrConfiguration)
	}
	switch kind {
	case UserStorageMeta, UserStorageOption:
	default:
		return Context{}, fmt.Errorf("%w: unknown user storage kind %q", ErrConfiguration, kind)
	}
	return Context{scope: ScopeUser, userID: userID, userStorage: kind, userGlobal: global}, nil
}

// Scope returns the storage domain selected by the context.
func (c Context) Scope() Scope { return c.scope }

// BlogID returns the sub-site id for blog-scoped contexts, zero otherwise.
func (c Context) BlogID() int64 { return c.blogID }

// UserID returns the user id for user-scoped contexts, zero otherwise.
func (c Context) UserID() int64 { return c.userID }

// UserStorage returns the user keying kind for user-scoped contexts.
func (c Context) UserStorage() UserStorage { return c.userStorage }

// UserGlobal reports whether a user-option row skips the backend prefix.
func (c Context) UserGlobal() bool { return c.userGlobal }
