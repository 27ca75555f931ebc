package deadline

import (
	"sync"
	"testing"
)

func TestTeardown_RunsOnceInOrder(t *testing.T) {
	var td teardown
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		td.add(func() { order = append(order, i) })
	}

	if !td.release() {
		t.Fatal("first release must report that it ran")
	}
	if td.release() {
		t.Fatal("second release must be a no-op")
	}

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestTeardown_AddAfterReleaseRunsImmediately(t *testing.T) {
	var td teardown
	td.release()

	ran := false
	td.add(func() { ran = true })
	if !ran {
		t.Fatal("action added after release must run immediately")
	}
}

func TestTeardown_ConcurrentRelease(t *testing.T) {
	var td teardown
	var mu sync.Mutex
	count := 0
	td.add(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			td.release()
		}()
	}
	wg.Wait()

	if count != 1 {
		t.Fatalf("action ran %d times, want 1", count)
	}
}
