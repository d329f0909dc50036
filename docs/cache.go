package docs

import (
	"cmp"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ronit111/documind/types"
)

// DefaultCacheTTL is how long a cached record stays valid.
const DefaultCacheTTL = 5 * time.Minute

// Cache is the client's read-mostly copy of server document records.
// Safe for concurrent use.
type Cache struct {
	cache *cache.Cache
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{cache: cache.New(ttl, 2*ttl)}
}

// Put stores rec, replacing any previous copy.
func (c *Cache) Put(rec types.DocumentRecord) {
	c.cache.Set(rec.ID, rec, cache.DefaultExpiration)
}

// Get returns the cached record for id.
func (c *Cache) Get(id string) (types.DocumentRecord, bool) {
	if x, found := c.cache.Get(id); found {
		return x.(types.DocumentRecord), true
	}
	return types.DocumentRecord{}, false
}

// Delete drops the record for id.
func (c *Cache) Delete(id string) {
	c.cache.Delete(id)
}

// Replace discards every record and stores records.
func (c *Cache) Replace(records []types.DocumentRecord) {
	c.cache.Flush()
	for _, rec := range records {
		c.Put(rec)
	}
}

// List returns the unexpired records, newest first.
func (c *Cache) List() []types.DocumentRecord {
	items := c.cache.Items()
	out := make([]types.DocumentRecord, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(types.DocumentRecord))
	}
	slices.SortFunc(out, func(a, b types.DocumentRecord) int {
		if n := b.CreatedAt.Compare(a.CreatedAt.Time); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
