package mathpuzzle

import (
	"sync"
	"time"
)

// Registry owns every session and the identity each one holds.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]*Session
}

func newRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]*Session),
	}
}

// Len returns the number of tracked sessions, disconnected ones included.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Lookup returns the session currently holding user, if any.
func (g *Registry) Lookup(user string) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.byUser[user]
}

// countsLocked returns live and disconnected session totals. Caller holds g.mu.
func (g *Registry) countsLocked() (live, disconnected int) {
	for _, s := range g.sessions {
		s.mu.Lock()
		st := s.state
		s.mu.Unlock()

		if st == StateDisconnected {
			disconnected++
		} else if st.live() {
			live++
		}
	}
	return live, disconnected
}

// each calls fn for every session whose state satisfies keep.
func (g *Registry) each(keep func(State) bool, fn func(*Session)) {
	g.mu.Lock()
	list := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		list = append(list, s)
	}
	g.mu.Unlock()

	for _, s := range list {
		if keep(s.State()) {
			fn(s)
		}
	}
}

type expiry struct {
	session *Session
	reason  string
}

// expiredLocked lists sessions past their ping timeout or reconnect grace.
// Caller holds g.mu.
func (g *Registry) expiredLocked(now time.Time, pingTimeout, grace time.Duration) []expiry {
	var out []expiry
	for _, s := range g.sessions {
		s.mu.Lock()
		st, pong, gone := s.state, s.lastPongAt, s.disconnectedAt
		s.mu.Unlock()

		switch {
		case st == StateDisconnected && now.Sub(gone) >= grace:
			out = append(out, expiry{s, "reconnect grace expired"})
		case st.live() && now.Sub(pong) > pingTimeout:
			out = append(out, expiry{s, "ping timeout"})
		}
	}
	return out
}
