package payment

import "sync"

// refLocks serializes read-modify-write cycles per payment reference. The
// database row lock already serializes writers per record; this closes the
// window where two callers both read a pre-transition status before either
// commits, which is what the exactly-once credit guard depends on.
type refLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newRefLocks() *refLocks {
	return &refLocks{locks: make(map[string]*refLock)}
}

// acquire locks the given reference and returns the release function
func (r *refLocks) acquire(ref string) func() {
	r.mu.Lock()
	l, ok := r.locks[ref]
	if !ok {
		l = &refLock{}
		r.locks[ref] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, ref)
		}
		r.mu.Unlock()
	}
}
