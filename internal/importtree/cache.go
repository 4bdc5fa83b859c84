// SPDX-License-Identifier: MPL-2.0

package importtree

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct expressions kept by NewCache.
const DefaultCacheSize = 1024

// Cache memoizes parsed expressions. The same import lines tend to repeat across
// the files of a project. Parsed trees are never mutated after Parse returns,
// so callers may share them.
type Cache struct {
	trees *lru.Cache[string, *Tree]
}

// NewCache creates a Cache holding up to size expressions. A non-positive size
// selects DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	trees, err := lru.New[string, *Tree](size)
	if err != nil {
		return nil, fmt.Errorf("create import cache: %w", err)
	}
	return &Cache{trees: trees}, nil
}

// Parse returns the cached tree for expr, parsing it on a miss. Failed parses
// are not cached.
func (c *Cache) Parse(expr string) (*Tree, error) {
	if c == nil {
		return Parse(expr)
	}
	if tree, ok := c.trees.Get(expr); ok {
		return tree, nil
	}
	tree, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	c.trees.Add(expr, tree)
	return tree, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.trees.Len()
}
