package disposal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// operation is the in-flight record of one coordinated disposal.
type operation struct {
	id        string
	unitID    string
	startedAt time.Time
	timeout   time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

func newOperation(unitID string, timeout time.Duration, cancel context.CancelFunc) *operation {
	return &operation{
		id:        uuid.NewString(),
		unitID:    unitID,
		startedAt: time.Now(),
		timeout:   timeout,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// OperationInfo is a read-only view of one in-flight disposal.
type OperationInfo struct {
	OperationID string
	UnitID      string
	StartedAt   time.Time
	Timeout     time.Duration
}

// operationSet tracks in-flight disposals keyed by unit identity. Concurrent
// disposals of the same unit are caller error; the set keeps the newest
// record and lets the stale one retire without touching its successor.
type operationSet struct {
	mu  sync.Mutex
	ops map[string]*operation
}

func newOperationSet() *operationSet {
	return &operationSet{ops: make(map[string]*operation)}
}

func (s *operationSet) add(op *operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops[op.unitID] = op
}

// remove deletes op only while it is still the registered record for its
// unit, so a stale record never deletes its successor.
func (s *operationSet) remove(op *operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.ops[op.unitID]; ok && current == op {
		delete(s.ops, op.unitID)
	}
}

func (s *operationSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ops)
}

func (s *operationSet) snapshot() []*operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*operation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, op)
	}

	return out
}

func (s *operationSet) infos() []OperationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OperationInfo, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, OperationInfo{
			OperationID: op.id,
			UnitID:      op.unitID,
			StartedAt:   op.startedAt,
			Timeout:     op.timeout,
		})
	}

	return out
}
