package track

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexExcludesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	inSection := 0
	maxSeen := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock(42)
			defer km.Unlock(42)

			mu.Lock()
			inSection++
			if inSection > maxSeen {
				maxSeen = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("critical section held by %d goroutines at once, want 1", maxSeen)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	km.Lock(1)
	defer km.Unlock(1)

	done := make(chan struct{})
	go func() {
		km.Lock(2)
		km.Unlock(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked behind key 1")
	}
}

func TestKeyedMutexUnlockUnlockedPanics(t *testing.T) {
	km := newKeyedMutex()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unlocking a key that was never locked")
		}
	}()
	km.Unlock(7)
}
