package embedding

import (
	"testing"
)

func TestVectorCache_GetSet(t *testing.T) {
	c := newVectorCache(2)
	if v, ok := c.Get("what is hybrid retrieval"); ok || v != nil {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("what is hybrid retrieval", []float32{1, 2, 3})
	v, ok := c.Get("what is hybrid retrieval")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("second chunk text", []float32{4, 5})
	c.Set("third chunk text", []float32{6}) // evicts the oldest
	if _, ok := c.Get("what is hybrid retrieval"); ok {
		t.Error("expected oldest text to be evicted")
	}
	if _, ok := c.Get("second chunk text"); !ok {
		t.Error("expected second text to remain")
	}
	if _, ok := c.Get("third chunk text"); !ok {
		t.Error("expected third text to be present")
	}
}

func TestVectorCache_SetUpdatesExisting(t *testing.T) {
	c := newVectorCache(2)
	c.Set("query", []float32{1})
	c.Set("query", []float32{2, 3})
	v, ok := c.Get("query")
	if !ok || len(v) != 2 || v[0] != 2 {
		t.Errorf("Get after update: got %v, %v", v, ok)
	}
}
