package ledger

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ProductLocker serializes lot mutation and aggregate recomputation per
// product. Different products proceed in parallel; two operations on the same
// product never interleave between reading a lot's remaining counter and
// writing the decrement back.
type ProductLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

// NewProductLocker creates a product locker
func NewProductLocker() *ProductLocker {
	return &ProductLocker{locks: make(map[uuid.UUID]*productLock)}
}

// Lock acquires the exclusive critical section for one product
func (l *ProductLocker) Lock(productID uuid.UUID) {
	l.mu.Lock()
	pl, ok := l.locks[productID]
	if !ok {
		pl = &productLock{}
		l.locks[productID] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
}

// Unlock releases the critical section and drops the entry once unused
func (l *ProductLocker) Unlock(productID uuid.UUID) {
	l.mu.Lock()
	pl, ok := l.locks[productID]
	if !ok {
		l.mu.Unlock()
		return
	}
	pl.refs--
	if pl.refs == 0 {
		delete(l.locks, productID)
	}
	l.mu.Unlock()

	pl.mu.Unlock()
}

// LockAll acquires the locks for a set of products in a stable order so two
// invoices touching the same products cannot deadlock against each other.
// The returned release function unlocks in reverse order.
func (l *ProductLocker) LockAll(productIDs []uuid.UUID) func() {
	ids := make([]uuid.UUID, 0, len(productIDs))
	seen := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	for _, id := range ids {
		l.Lock(id)
	}
	return func() {
		for i := len(ids) - 1; i >= 0; i-- {
			l.Unlock(ids[i])
		}
	}
}
