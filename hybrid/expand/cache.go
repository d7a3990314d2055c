package expand

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"
)

// DefaultCacheSize bounds the expansions kept by a Cache.
const DefaultCacheSize = 256

type cacheKey struct {
	q *expression.QNode
	c model.Container
}

// Cache keeps recent expansions of the same filter against the same model,
// since filters are immutable. Containers used as keys must be comparable.
type Cache struct {
	expander *Expander
	entries  *lru.Cache[cacheKey, expression.Node]
}

func NewCache(size int, opts ...Option) (*Cache, error) {
	entries, err := lru.New[cacheKey, expression.Node](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating expansion cache")
	}
	return &Cache{expander: NewExpander(opts...), entries: entries}, nil
}

func (c *Cache) Expand(container model.Container, q *expression.QNode) (expression.Node, error) {
	key := cacheKey{q: q, c: container}
	if n, ok := c.entries.Get(key); ok {
		return n, nil
	}
	n, err := c.expander.Expand(container, q)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, n)
	return n, nil
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Purge() {
	c.entries.Purge()
}
