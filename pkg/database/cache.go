package database

import (
	"container/list"
	"strings"
	"sync"
)

// docCache is an LRU of decoded documents shared by every DataManager.
// Keys are prefixed with the collection name.
type docCache struct {
	mu    sync.Mutex
	index map[string]*list.Element
	order *list.List
}

type cached struct {
	key   string
	value any
}

var sharedCache = newDocCache()

func newDocCache() *docCache {
	return &docCache{
		index: make(map[string]*list.Element),
		order: list.New(),
	}
}

func (c *docCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cached).value, true
}

// put stores value and evicts the least recently used entry past limit.
// A limit of zero means unbounded.
func (c *docCache) put(key string, value any, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		elem.Value.(*cached).value = value
		c.order.MoveToFront(elem)
		return
	}
	c.index[key] = c.order.PushFront(&cached{key: key, value: value})

	for limit > 0 && c.order.Len() > limit {
		oldest := c.order.Back()
		delete(c.index, oldest.Value.(*cached).key)
		c.order.Remove(oldest)
	}
}

func (c *docCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[key]; ok {
		c.order.Remove(elem)
		delete(c.index, key)
	}
}

func (c *docCache) removePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.index {
		if strings.HasPrefix(key, prefix) {
			c.order.Remove(elem)
			delete(c.index, key)
		}
	}
}

func (c *docCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element)
	c.order.Init()
}

func (c *docCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
