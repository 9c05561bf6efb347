package inventory

import (
	"sort"
	"sync"
)

// productLocks serializes check-then-act stock paths per product. Two
// restores (or an archive and a restore) touching a shared product take
// the same mutex, so both cannot pass a stock pre-check and then
// over-apply.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *productLocks) get(productID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[productID] = m
	}
	return m
}

// lockAll acquires the mutex of every named product in sorted order
// (deduped), which rules out lock inversion between concurrent
// operations. The returned func releases them in reverse order.
func (p *productLocks) lockAll(productIDs []string) (unlock func()) {
	unique := make(map[string]bool, len(productIDs))
	var ids []string
	for _, id := range productIDs {
		if !unique[id] {
			unique[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := p.get(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
