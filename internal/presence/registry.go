// Package presence tracks which live connection belongs to which user
// identity. A connection is bound to at most one identity and an identity
// to at most one connection; the most recent bind wins.
package presence

import (
	"context"
	"sync"
)

type Registry interface {
	// Bind associates identity with connId, replacing any earlier binding
	// for identity. It returns the connection id that was replaced, if any.
	Bind(ctx context.Context, identity, connId string) (previous string, err error)
	// Unbind removes the binding held by connId. It reports the identity
	// that was unbound, or ok == false if connId held none.
	Unbind(ctx context.Context, connId string) (identity string, ok bool, err error)
	// Lookup returns the connection currently bound to identity.
	Lookup(ctx context.Context, identity string) (connId string, ok bool, err error)
}

type MemoryRegistry struct {
	mu     sync.Mutex
	byUser map[string]string
	byConn map[string]string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

func (r *MemoryRegistry) Bind(_ context.Context, identity, connId string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// a connection re-joining under a new identity releases the old one
	if oldIdentity, ok := r.byConn[connId]; ok && oldIdentity != identity && r.byUser[oldIdentity] == connId {
		delete(r.byUser, oldIdentity)
	}

	previous := r.byUser[identity]
	if previous != "" && previous != connId {
		delete(r.byConn, previous)
	} else {
		previous = ""
	}

	r.byUser[identity] = connId
	r.byConn[connId] = identity

	return previous, nil
}

func (r *MemoryRegistry) Unbind(_ context.Context, connId string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byConn[connId]
	if !ok {
		return "", false, nil
	}

	delete(r.byConn, connId)
	if r.byUser[identity] == connId {
		delete(r.byUser, identity)
	}

	return identity, true, nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, identity string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connId, ok := r.byUser[identity]
	return connId, ok, nil
}

// Len reports the number of bound identities.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byUser)
}
