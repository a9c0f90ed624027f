package branchfs

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedLocks_SerializesSameKey(t *testing.T) {
	k := newKeyedLocks()
	var mu sync.Mutex
	order := []int{}

	unlock1 := k.Lock("b", "/f")
	done := make(chan struct{})
	go func() {
		unlock2 := k.Lock("b", "/f")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		unlock2()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	unlock1()
	<-done

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestKeyedLocks_DifferentKeysDoNotBlock(t *testing.T) {
	k := newKeyedLocks()
	unlock1 := k.Lock("b", "/f1")
	defer unlock1()

	done := make(chan struct{})
	go func() {
		unlock2 := k.Lock("b", "/f2")
		unlock2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on an unrelated key blocked")
	}
}
