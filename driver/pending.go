package driver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matst80/gremlink/internal/obs"
)

// ResultFuture resolves once its request reaches a terminal state. It resolves
// or rejects exactly once.
type ResultFuture struct {
	ready   chan struct{}
	results []any
	err     error
}

func newResultFuture() *ResultFuture {
	return &ResultFuture{ready: make(chan struct{})}
}

// Done is closed when the result is available.
func (f *ResultFuture) Done() <-chan struct{} { return f.ready }

// Wait blocks until the request completes or ctx is cancelled. Cancelling the
// wait does not cancel the request; the table entry lives until a terminal
// frame arrives or the channel is lost.
func (f *ResultFuture) Wait(ctx context.Context) ([]any, error) {
	select {
	case <-f.ready:
		return f.results, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingRequest is one outstanding request owned by the pending table. All
// mutation happens from the connection's dispatch context, so no lock of its
// own is needed beyond the completion guard.
type pendingRequest struct {
	id      uuid.UUID
	future  *ResultFuture
	acc     []any
	started time.Time

	// awaitingAuth marks that a challenge reply was sent under this id and the
	// authenticated result is still outstanding.
	awaitingAuth bool

	completed bool
}

// appendPartial concatenates a partial-content frame's data in arrival order.
func (p *pendingRequest) appendPartial(vals []any) {
	p.acc = append(p.acc, vals...)
}

// complete resolves the future with the accumulated data plus the terminal
// frame's data. Later calls are no-ops.
func (p *pendingRequest) complete(vals []any) {
	if p.completed {
		return
	}
	p.completed = true
	p.future.results = append(p.acc, vals...)
	obs.RequestDurationSeconds.Observe(time.Since(p.started).Seconds())
	close(p.future.ready)
}

// fail rejects the future. Later calls are no-ops.
func (p *pendingRequest) fail(err error) {
	if p.completed {
		return
	}
	p.completed = true
	p.future.err = err
	close(p.future.ready)
}

// pendingTable maps in-flight request ids to their accumulators and futures.
// Insert-once/remove-once is enforced here rather than at call sites: add
// rejects duplicates and remove reports whether the entry was still live.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uuid.UUID]*pendingRequest)}
}

func (t *pendingTable) add(p *pendingRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[p.id]; exists {
		return ErrDuplicateRequestID
	}
	t.entries[p.id] = p
	obs.PendingRequests.Set(float64(len(t.entries)))
	return nil
}

func (t *pendingTable) get(id uuid.UUID) *pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id]
}

// remove takes an entry out of the table, returning nil if it was already
// removed. Completion must only happen on the entry remove returns.
func (t *pendingTable) remove(id uuid.UUID) *pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.entries[id]
	delete(t.entries, id)
	obs.PendingRequests.Set(float64(len(t.entries)))
	return p
}

// drain empties the table and returns every live entry, for shared-failure
// paths that must complete all of them.
func (t *pendingTable) drain() []*pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*pendingRequest, 0, len(t.entries))
	for _, p := range t.entries {
		out = append(out, p)
	}
	t.entries = make(map[uuid.UUID]*pendingRequest)
	obs.PendingRequests.Set(0)
	return out
}

func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
