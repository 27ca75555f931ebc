package deadline

import "sync"

// teardown accumulates release actions for one deadline and runs them exactly
// once. Actions run in registration order.
type teardown struct {
	mu       sync.Mutex
	fns      []func()
	released bool
}

// add registers fn. If the list was already released, fn runs immediately so
// a late acquisition is never leaked.
func (t *teardown) add(fn func()) {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		fn()
		return
	}
	t.fns = append(t.fns, fn)
	t.mu.Unlock()
}

// release runs and clears every registered action. Redundant calls are no-ops.
// It reports whether this call performed the release.
func (t *teardown) release() bool {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return false
	}
	t.released = true
	fns := t.fns
	t.fns = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}
