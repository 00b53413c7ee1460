// Package heap implements the heap reference table: the per-context arena
// that keeps native engine values rooted while the host holds a handle to
// them. The handle is the index into the arena; raw engine values never
// cross the boundary.
package heap

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/embedvm/jsvm/types"
)

// nextHandle is a process-wide counter. Handle ids are never recycled
// within the process lifetime, so a stale id held by host code can never
// alias a newer entry, not even one in a different context.
var nextHandle atomic.Uint64

// Table maps handles to live engine values for one context. The entry is
// the one strong reference that keeps the value rooted against the
// collector; dropping it returns the value to the engine for reclamation.
//
// The lock covers only table mutations, never an engine call, so unrelated
// host threads do not serialize on lookups.
type Table struct {
	mu      sync.Mutex
	entries map[types.Handle]goja.Value
	closed  bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[types.Handle]goja.Value)}
}

// Register takes ownership of one strong reference to v and returns a
// freshly allocated handle for it. Handles start at 1, so the zero value
// always flags an error.
func (t *Table) Register(v goja.Value) (types.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, types.NewContextInvalid()
	}
	h := types.Handle(nextHandle.Add(1))
	t.entries[h] = v
	return h, nil
}

// Resolve returns the still-owned value for h, or HandleInvalid if the
// handle is unknown, already released, released by ReleaseAll, or from a
// foreign context.
func (t *Table) Resolve(h types.Handle) (goja.Value, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[h]
	if !ok {
		return nil, types.NewHandleInvalid(h)
	}
	return v, nil
}

// Release drops the strong reference for h exactly once. Releasing an
// unknown or already-released handle is a no-op: host finalizers may run
// more than once defensively, and that must never turn into a double-free.
func (t *Table) Release(h types.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, h)
}

// ReleaseAll drops every outstanding entry and closes the table. It is
// called on context destruction so abnormal host teardown cannot leak
// engine values. Register fails with ContextInvalid afterwards; Resolve
// reports the dropped entries as any released handle, with HandleInvalid.
func (t *Table) ReleaseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	clear(t.entries)
}

// Len returns the number of outstanding entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
