package engine

import (
	"sync"

	"github.com/goccy/go-json"
)

// pendingCall records the completion a guest signals during one
// completion-signaled export call.
type pendingCall struct {
	err      error
	op       string
	result   json.RawMessage
	signaled bool
}

// pendingTable maps callback ids handed to the guest to their calls.
// Id 0 is reserved and always invalid.
type pendingTable struct {
	calls map[uint32]*pendingCall
	next  uint32
	mu    sync.Mutex
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: make(map[uint32]*pendingCall)}
}

// open registers a call and returns its callback id.
func (t *pendingTable) open(op string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		t.next++
		if t.next == 0 {
			continue
		}
		if _, busy := t.calls[t.next]; !busy {
			break
		}
	}
	t.calls[t.next] = &pendingCall{op: op}
	return t.next
}

// signal stores the guest's result. It reports false for unknown ids and
// for ids that were already signaled.
func (t *pendingTable) signal(id uint32, result json.RawMessage, err error) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[id]
	if !ok || c.signaled {
		return "", false
	}
	c.signaled = true
	c.result = result
	c.err = err
	return c.op, true
}

// lookup returns the op registered for id.
func (t *pendingTable) lookup(id uint32) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[id]
	if !ok {
		return "", false
	}
	return c.op, true
}

// close removes the call and returns its final state.
func (t *pendingTable) close(id uint32) (*pendingCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	return c, ok
}

// Len returns the number of open calls.
func (t *pendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
