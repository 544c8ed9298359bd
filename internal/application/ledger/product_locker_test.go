package ledger

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProductLocker_SerializesSameProduct(t *testing.T) {
	locker := NewProductLocker()
	productID := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locker.Lock(productID)
			defer locker.Unlock(productID)
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestProductLocker_DifferentProductsDoNotBlock(t *testing.T) {
	locker := NewProductLocker()
	a := uuid.New()
	b := uuid.New()

	locker.Lock(a)
	done := make(chan struct{})
	go func() {
		locker.Lock(b)
		locker.Unlock(b)
		close(done)
	}()
	<-done
	locker.Unlock(a)
}

func TestProductLocker_LockAll(t *testing.T) {
	locker := NewProductLocker()
	a := uuid.New()
	b := uuid.New()

	t.Run("deduplicates ids", func(t *testing.T) {
		release := locker.LockAll([]uuid.UUID{a, b, a})
		release()
	})

	t.Run("opposite orders cannot deadlock", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				release := locker.LockAll([]uuid.UUID{a, b})
				release()
			}()
			go func() {
				defer wg.Done()
				release := locker.LockAll([]uuid.UUID{b, a})
				release()
			}()
		}
		wg.Wait()
	})
}
