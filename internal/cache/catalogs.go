package cache

import (
	"sync"
	"time"

	"PimSync/internal/pimapi/models"
)

// Catalogs кеш списка каталогов PIM с временем жизни.
// Принадлежит клиенту PIM, сбрасывается явно через Invalidate.
type Catalogs struct {
	mu       sync.RWMutex
	items    []*models.Catalog
	byID     map[string]*models.Catalog
	loadedAt time.Time
	lifetime time.Duration
	now      func() time.Time
}

func NewCatalogs(lifetime time.Duration, now func() time.Time) *Catalogs {
	if now == nil {
		now = time.Now
	}
	return &Catalogs{
		lifetime: lifetime,
		now:      now,
	}
}

// Get возвращает каталоги, если кеш заполнен и не устарел.
func (c *Catalogs) Get() ([]*models.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.validLocked() {
		return nil, false
	}
	items := make([]*models.Catalog, len(c.items))
	copy(items, c.items)
	return items, true
}

func (c *Catalogs) GetByID(id string) (*models.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.validLocked() {
		return nil, false
	}
	catalog, found := c.byID[id]
	return catalog, found
}

func (c *Catalogs) Set(items []*models.Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = items
	c.byID = make(map[string]*models.Catalog, len(items))
	for i, item := range items {
		c.byID[item.ID.String()] = items[i]
	}
	c.loadedAt = c.now()
}

func (c *Catalogs) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.byID = nil
	c.loadedAt = time.Time{}
}

func (c *Catalogs) validLocked() bool {
	if c.byID == nil {
		return false
	}
	return c.now().Sub(c.loadedAt) < c.lifetime
}
