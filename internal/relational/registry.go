// Package relational opens the normalized movie catalog the engine reads
// from. Backends register a Factory under a kind name in their init
// functions; callers pick one by configuration and then work against *Source
// without importing a driver directly.
//
// Importing internal/relational/all enables every built-in backend:
//
//	import _ "github.com/qlemen7/cineexplorer/internal/relational/all"
//
//	src, err := relational.Open(ctx, relational.Config{Kind: "sqlite", DSN: "imdb.db"})
package relational

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Source for a backend.
type Factory func(ctx context.Context, cfg Config) (*Source, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. A later registration for
// the same kind replaces the earlier one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Open constructs a Source for cfg.Kind.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported source.kind=%s (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
