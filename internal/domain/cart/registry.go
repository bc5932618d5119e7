package cart

import (
	"hash/maphash"
	"sync"
)

// lockStripes bounds the number of mutexes shared by all sessions.
const lockStripes = 256

// Registry hands out Stores whose mutex is chosen by hashing the session
// identifier, so requests of the same session are serialised. It keeps no
// per-session state: memory does not grow with the number of sessions.
type Registry struct {
	storage  Storage
	observer Observer

	seed  maphash.Seed
	locks [lockStripes]sync.Mutex
}

// NewRegistry creates a Registry whose stores use the given storage and
// observer.
func NewRegistry(storage Storage, observer Observer) *Registry {
	return &Registry{
		storage:  storage,
		observer: observer,
		seed:     maphash.MakeSeed(),
	}
}

// Get returns a Store for the given session.
func (r *Registry) Get(session string) *Store {
	return &Store{
		session:  session,
		storage:  r.storage,
		observer: r.observer,
		mu:       r.lockFor(session),
	}
}

func (r *Registry) lockFor(session string) *sync.Mutex {
	return &r.locks[maphash.String(r.seed, session)%lockStripes]
}
