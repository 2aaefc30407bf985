package translate

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"namelens/internal/alias"
)

// resultCache remembers results per strategy, snapshot version and name.
// A reload or merge bumps the version, so stale entries are never hit and
// age out of the LRU.
type resultCache struct {
	lru *lru.Cache[string, Result]
}

func newResultCache(size int) *resultCache {
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil
	}
	return &resultCache{lru: c}
}

func cacheKey(strategy alias.Strategy, version uint64, name string) string {
	return strategy.String() + "|" + strconv.FormatUint(version, 10) + "|" + name
}

func (c *resultCache) get(strategy alias.Strategy, version uint64, name string) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	return c.lru.Get(cacheKey(strategy, version, name))
}

func (c *resultCache) add(strategy alias.Strategy, version uint64, name string, res Result) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(strategy, version, name), res)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
