package settings

import "github.com/puzpuzpuz/xsync/v3"

// ProgramCache stores compiled rule programs keyed by expression strings.
// Implementations must be safe for concurrent use: one cache is typically
// shared by every store in the process.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewProgramCache returns the default cache implementation.
func NewProgramCache() ProgramCache {
	return &xsyncProgramCache{programs: xsync.NewMapOf[string, any]()}
}

type xsyncProgramCache struct {
	programs *xsync.MapOf[string, any]
}

func (c *xsyncProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *xsyncProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}
