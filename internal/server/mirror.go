package server

import (
	"context"
	"database/sql"
	"log"
	"time"
)

const (
	mirrorQueueSize    = 1024
	mirrorWriteTimeout = 5 * time.Second
)

// PresenceStore persists presence so other request paths can discover a
// user's connection id.
type PresenceStore interface {
	SetSocketId(ctx context.Context, email string, socketId sql.NullString) error
	ClearSocketId(ctx context.Context, email, socketId string) error
}

type mirrorOp struct {
	email    string
	socketId string
	clear    bool
}

// mirrorWriter applies presence writes one at a time in the order they
// were enqueued, so a join and a later disconnect for the same identity
// reach storage in that order. Failures are logged and dropped. Writes
// arriving while the queue is full are dropped without blocking the caller.
type mirrorWriter struct {
	log     *log.Logger
	store   PresenceStore
	ops     chan mirrorOp
	done    chan struct{}
	timeout time.Duration
}

func newMirrorWriter(logger *log.Logger, store PresenceStore) *mirrorWriter {
	return &mirrorWriter{
		log:     logger,
		store:   store,
		ops:     make(chan mirrorOp, mirrorQueueSize),
		done:    make(chan struct{}),
		timeout: mirrorWriteTimeout,
	}
}

func (m *mirrorWriter) run() {
	defer close(m.done)

	for op := range m.ops {
		m.apply(op)
	}
}

func (m *mirrorWriter) apply(op mirrorOp) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	if op.clear {
		err = m.store.ClearSocketId(ctx, op.email, op.socketId)
	} else {
		err = m.store.SetSocketId(ctx, op.email, sql.NullString{String: op.socketId, Valid: true})
	}

	if err != nil {
		m.log.Printf("mirror presence for %q (clear=%t): %v", op.email, op.clear, err)
	}
}

func (m *mirrorWriter) set(email, socketId string) bool {
	return m.enqueue(mirrorOp{email: email, socketId: socketId})
}

func (m *mirrorWriter) clear(email, socketId string) bool {
	return m.enqueue(mirrorOp{email: email, socketId: socketId, clear: true})
}

func (m *mirrorWriter) enqueue(op mirrorOp) bool {
	select {
	case m.ops <- op:
		return true
	default:
		m.log.Printf("mirror queue full, dropping presence write for %q (clear=%t)", op.email, op.clear)
		return false
	}
}

// close stops accepting writes; run returns once the queue is drained.
func (m *mirrorWriter) close() {
	close(m.ops)
}
