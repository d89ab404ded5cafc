// internal/routing/alias.go
//
// Alias-resolution cache.
//
// Context
// -------
// Friendly paths (“/about”) can be mapped to absolute destinations
// (“/home/page/view/slug/about”) through the `route_alias` table.  The
// dispatcher consults AliasCache before it splits a path, so the rest of
// the pipeline only ever sees absolute destinations.
//
// Workflow
// --------
//   1. bootstrap opens the alias DB and calls routing.NewAliasCache().
//   2. Dispatcher.Resolve calls Rewrite(ctx, path) on every request.
//   3. A stale cache refreshes in-line; concurrent refreshes collapse into
//      one query via singleflight.  A failed refresh keeps serving the
//      previous map and logs a warning.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.

package routing

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// -----------------------------------------------------------------------------
// AliasCache
// -----------------------------------------------------------------------------

// AliasCache stores alias→target pairs plus TTL state.  Zero value is
// unusable; construct with NewAliasCache.
type AliasCache struct {
	mu       sync.RWMutex
	data     map[string]string
	loadedAt time.Time
	ttl      time.Duration
	db       *sqlx.DB
	sfg      singleflight.Group
}

// NewAliasCache returns a cache with the specified TTL.  The first Rewrite
// triggers the initial load.  A nil db yields a cache that only serves
// seeded pairs.
func NewAliasCache(db *sqlx.DB, ttl time.Duration) *AliasCache {
	return &AliasCache{data: map[string]string{}, db: db, ttl: ttl}
}

type aliasRow struct {
	Alias  string `db:"alias_path"`
	Target string `db:"target_path"`
}

// Load refreshes all aliases from route_alias.
func (c *AliasCache) Load(ctx context.Context) error {
	var rows []aliasRow
	if err := c.db.SelectContext(ctx, &rows,
		`SELECT alias_path, target_path FROM route_alias`); err != nil {
		return err
	}

	fresh := make(map[string]string, len(rows))
	for _, r := range rows {
		fresh[r.Alias] = r.Target
	}

	c.mu.Lock()
	c.data = fresh
	c.loadedAt = time.Now()
	c.mu.Unlock()

	zap.L().Debug("alias cache load",
		zap.Int("count", len(fresh)))
	return nil
}

// Rewrite returns the target for path, refreshing first when stale.  ok is
// false on a miss.
func (c *AliasCache) Rewrite(ctx context.Context, path string) (string, bool) {
	if c.db != nil && c.stale() {
		_, err, _ := c.sfg.Do("load", func() (any, error) {
			return nil, c.Load(ctx)
		})
		if err != nil {
			zap.L().Warn("alias cache reload failed", zap.Error(err))
		}
	}

	c.mu.RLock()
	target, ok := c.data[path]
	c.mu.RUnlock()
	if ok {
		zap.L().Debug("alias rewrite",
			zap.String("from", path),
			zap.String("to", target))
	}
	return target, ok
}

func (c *AliasCache) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.loadedAt) > c.ttl
}

// store seeds one pair and marks the cache fresh.
func (c *AliasCache) store(alias, target string) {
	c.mu.Lock()
	c.data[alias] = target
	c.loadedAt = time.Now()
	c.mu.Unlock()
}
