package client

import (
	"sync"

	"vos-tools/types"

	hamt "github.com/raviqqe/hamt"
)

type cacheKey string

// FNV Hash prime
const primeRK = 16777619

func (s cacheKey) Hash() uint32 {
	h := uint32(0)
	for i := 0; i < len(s); i++ {
		h = h*primeRK + uint32(s[i])
	}
	return h
}

func (s cacheKey) Equal(e hamt.Entry) bool {
	o, ok := e.(cacheKey)
	if !ok {
		return false
	}
	return s == o
}

type cacheNode struct {
	key  hamt.Entry
	node *types.Node
	prev *cacheNode
	next *cacheNode
}

// NodeCache keeps recently fetched node documents, keyed by URI. The
// map is a hash array mapped trie with a doubly linked list tracking
// recency; the head is the next entry to fall out. Nodes are copied on
// the way in and out so callers can mutate their documents freely.
type NodeCache struct {
	mu       sync.Mutex
	capacity int
	head     *cacheNode
	tail     *cacheNode
	entries  hamt.Map
}

func NewNodeCache(capacity int) *NodeCache {
	return &NodeCache{
		capacity: capacity,
		entries:  hamt.NewMap(),
	}
}

func (c *NodeCache) Get(uri string) *types.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := c.entries.Find(cacheKey(uri))
	if value == nil {
		return nil
	}
	entry, ok := value.(*cacheNode)
	if !ok {
		return nil
	}
	c.unlink(entry)
	c.push(entry)
	return entry.node.Clone()
}

func (c *NodeCache) Put(uri string, n *types.Node) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hamt.Entry(cacheKey(uri))
	if value := c.entries.Find(key); value != nil {
		if entry, ok := value.(*cacheNode); ok {
			entry.node = n.Clone()
			c.unlink(entry)
			c.push(entry)
			return
		}
	}

	if c.entries.Size() >= c.capacity && c.head != nil {
		evicted := c.head
		c.unlink(evicted)
		c.entries = c.entries.Delete(evicted.key)
	}
	entry := &cacheNode{key: key, node: n.Clone()}
	c.entries = c.entries.Insert(key, entry)
	c.push(entry)
}

func (c *NodeCache) Evict(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hamt.Entry(cacheKey(uri))
	value := c.entries.Find(key)
	if value == nil {
		return
	}
	if entry, ok := value.(*cacheNode); ok {
		c.unlink(entry)
		c.entries = c.entries.Delete(key)
	}
}

func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Size()
}

func (c *NodeCache) unlink(n *cacheNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *NodeCache) push(n *cacheNode) {
	n.prev = c.tail
	n.next = nil
	if c.tail != nil {
		c.tail.next = n
	}
	c.tail = n
	if c.head == nil {
		c.head = n
	}
}
