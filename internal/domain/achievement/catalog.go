package achievement

import "sync"

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - упорядоченный набор определений достижений.
// Членство только дополняется: удаления нет, есть деактивация.
// Каталог создаётся вызывающим и передаётся явно, глобального экземпляра нет.
type Catalog struct {
	mu    sync.RWMutex
	items []Definition
	index map[string]int
}

// NewCatalog создаёт каталог из определений в заданном порядке.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{
		items: make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		c.appendLocked(d)
	}
	return c
}

// List возвращает копию определений в порядке каталога.
func (c *Catalog) List(activeOnly bool) []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Definition, 0, len(c.items))
	for _, d := range c.items {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	return out
}

// FindByID возвращает определение по ID, в том числе неактивное.
func (c *Catalog) FindByID(id string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.items[i], true
}

// Create добавляет определение в конец каталога и возвращает его.
//
// Предусловие: ID уникален. Каталог это не проверяет; при повторе
// FindByID продолжит возвращать первое определение с этим ID, а Deactivate
// снимет флаг со всех определений с этим ID.
func (c *Catalog) Create(def Definition) Definition {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendLocked(def)
	return def
}

// Deactivate снимает флаг Active.
// Возвращает true, если определение с таким ID существует, независимо
// от предыдущего состояния флага.
func (c *Catalog) Deactivate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; !ok {
		return false
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Active = false
		}
	}
	return true
}

// ByCategory возвращает активные определения указанной категории.
func (c *Catalog) ByCategory(category Category) []Definition {
	return c.filterActive(func(d Definition) bool { return d.Category == category })
}

// ByRarity возвращает активные определения указанной редкости.
func (c *Catalog) ByRarity(rarity Rarity) []Definition {
	return c.filterActive(func(d Definition) bool { return d.Rarity == rarity })
}

// Len возвращает общее число определений, включая неактивные.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Catalog) filterActive(keep func(Definition) bool) []Definition {
	var out []Definition
	for _, d := range c.List(true) {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (c *Catalog) appendLocked(def Definition) {
	if _, exists := c.index[def.ID]; !exists {
		c.index[def.ID] = len(c.items)
	}
	c.items = append(c.items, def)
}
