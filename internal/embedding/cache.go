package embedding

import (
	"container/list"
	"sync"
)

// vectorCache keeps recently computed embedding vectors keyed by the exact
// chunk or query text, so repeated text (re-indexed documents, repeated
// queries) skips the ONNX inference pass. Eviction is least-recently-used.
type vectorCache struct {
	capacity int
	byText   map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type vectorEntry struct {
	text   string
	vector []float32
}

func newVectorCache(capacity int) *vectorCache {
	return &vectorCache{
		capacity: capacity,
		byText:   make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached vector for text, marking it most recently used.
func (c *vectorCache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if elem, ok := c.byText[text]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*vectorEntry).vector, true
	}
	return nil, false
}

// Set stores the vector for text. When the cache is full the
// least-recently-used text is dropped.
func (c *vectorCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byText[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*vectorEntry).vector = vector
		return
	}

	elem := c.order.PushFront(&vectorEntry{text: text, vector: vector})
	c.byText[text] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.byText, oldest.Value.(*vectorEntry).text)
		}
	}
}
