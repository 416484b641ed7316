// Package sessionstore keeps the live editing sessions of a server process.
//
// # Concurrency Model
//
// Sessions are created and dropped by connection handlers running in their
// own goroutines, while the health endpoint and shutdown read the whole set.
// Keys are independent and each is written once and deleted once, which is
// the access pattern sync.Map is built for.
//
// The registry holds sessions only; it does not serialize intents. That is
// the job of each session.
package sessionstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/session"
)

// Store is an in-memory registry of sessions keyed by session id.
type Store struct {
	sessions sync.Map // Key: session id, Value: session.Session
	count    atomic.Int64
}

// New creates an empty registry.
func New() *Store {
	return &Store{}
}

// Put registers s. A session already stored under the same id is replaced.
func (st *Store) Put(s session.Session) {
	if _, loaded := st.sessions.Swap(s.ID(), s); !loaded {
		st.count.Add(1)
	}
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (session.Session, bool) {
	v, ok := st.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(session.Session), true
}

// Remove drops and closes the session with the given id. Removing an unknown
// id is a no-op.
func (st *Store) Remove(ctx context.Context, id string) error {
	v, ok := st.sessions.LoadAndDelete(id)
	if !ok {
		return nil
	}
	st.count.Add(-1)
	return v.(session.Session).Close(ctx)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	return int(st.count.Load())
}

// IDs returns the ids of all live sessions, sorted.
func (st *Store) IDs() []string {
	var ids []string
	st.sessions.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// CloseAll removes and closes every session. All sessions are closed even
// when some fail; the errors are joined.
func (st *Store) CloseAll(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, id := range st.IDs() {
		if err := st.Remove(ctx, id); err != nil {
			logger.Warn("Failed to close session.", "session_id", id, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
