package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sha1n/mcp-symdex-server/internal/container/list"
)

type lruItem struct {
	key     string
	value   []byte
	expires time.Time
}

// LRU is an in-process Cache holding at most size entries; the least
// recently used entry is evicted first.
type LRU struct {
	mu     sync.Mutex
	size   int
	order  *list.DoublyLinkedList[*lruItem]
	items  map[string]*list.Element[*lruItem]
	now    func() time.Time
	closed bool
}

// NewLRU creates an LRU cache. size below 1 is treated as 1.
func NewLRU(size int) *LRU {
	return &LRU{
		size:  max(size, 1),
		order: list.NewDoubly[*lruItem](nil),
		items: make(map[string]*list.Element[*lruItem]),
		now:   time.Now,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, ErrClosed
	}

	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.Value.expires.IsZero() && !c.now().Before(e.Value.expires) {
		c.removeElement(e)
		return nil, false, nil
	}
	c.order.MoveToFront(e)
	return e.Value.value, true, nil
}

// Set stores value, evicting the least recently used entry when full.
func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	if e, ok := c.items[key]; ok {
		e.Value.value = value
		e.Value.expires = expires
		c.order.MoveToFront(e)
		return nil
	}

	c.items[key] = c.order.AddFirst(&lruItem{key: key, value: value, expires: expires})
	for c.order.Len() > c.size {
		c.removeElement(c.order.Back())
	}
	return nil
}

// DeletePrefix removes all keys beginning with prefix.
func (c *LRU) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for key, e := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(e)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close drops all entries. Later calls fail with ErrClosed.
func (c *LRU) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Clear()
	clear(c.items)
	c.closed = true
	return nil
}

func (c *LRU) removeElement(e *list.Element[*lruItem]) {
	delete(c.items, e.Value.key)
	c.order.Remove(e)
}
