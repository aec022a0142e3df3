package retriever

import (
	"fmt"

	"github.com/xhad/tradeqa/pkg/cache"
)

// IndexCache holds one index per document for the session. An index is
// rebuilt only when the document text hashes differently from the text it
// was built from. Concurrent first builds of the same document share one
// construction.
type IndexCache struct {
	retriever *Retriever
	indexes   *cache.Cache[string, *Index]
}

func NewIndexCache(r *Retriever) *IndexCache {
	return &IndexCache{
		retriever: r,
		indexes:   cache.New[string, *Index](cache.Config{}),
	}
}

// Get returns the cached index for name, building it from text on first
// use or after the text changed.
func (c *IndexCache) Get(name, text string) (*Index, error) {
	if idx, ok := c.indexes.Get(name); ok {
		if idx.Identity() == Identity(text) {
			return idx, nil
		}
		c.indexes.Delete(name)
	}

	idx, err := c.indexes.GetOrLoad(name, func() (*Index, error) {
		return c.retriever.Build(text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", name, err)
	}
	return idx, nil
}

// Retriever returns the retriever used to build and query indexes.
func (c *IndexCache) Retriever() *Retriever {
	return c.retriever
}

// Len reports how many documents are indexed.
func (c *IndexCache) Len() int {
	return c.indexes.Len()
}
