package mathpuzzle

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// State is where a session stands in the login/room/game lifecycle.
type State int

const (
	StateConnected State = iota
	StateInLobby
	StateInRoom
	StateReady
	StateInGame
	// StateDisconnected keeps the slot while the reconnect grace runs.
	StateDisconnected
	// StateTerminated is fully reclaimed and never comes back.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateInLobby:
		return "lobby"
	case StateInRoom:
		return "room"
	case StateReady:
		return "ready"
	case StateInGame:
		return "game"
	case StateDisconnected:
		return "disconnected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Peer is one client connection as seen by the engine.
type Peer interface {
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// Session binds one connection to an optional identity.
type Session struct {
	id      string
	peer    Peer
	outbox  chan string
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter

	mu             sync.Mutex
	user           string
	state          State
	saved          State
	room           *Room
	slot           int
	lastPingSent   time.Time
	lastPongAt     time.Time
	rtt            int
	disconnectedAt time.Time
}

func newSession(peer Peer, cfg Config, now time.Time) *Session {
	return &Session{
		id:         uuid.NewString(),
		peer:       peer,
		outbox:     make(chan string, cfg.OutboxSize),
		done:       make(chan struct{}),
		limiter:    rate.NewLimiter(rate.Limit(cfg.CommandRate), cfg.CommandBurst),
		slot:       -1,
		lastPongAt: now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session stops accepting output.
func (s *Session) Done() <-chan struct{} { return s.done }

// send queues line without blocking. A full outbox drops the connection.
func (s *Session) send(line string) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.outbox <- line:
	default:
		s.abort()
	}
}

// close stops output; the write pump flushes what is queued, then closes the peer.
func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

// abort stops output and closes the peer immediately.
func (s *Session) abort() {
	s.close()
	_ = s.peer.Close()
}

// writePump drains the outbox onto the peer until the session closes.
func (s *Session) writePump() {
	defer s.peer.Close()

	for {
		select {
		case line := <-s.outbox:
			if err := s.peer.WriteLine(line); err != nil {
				s.close()
				return
			}
		case <-s.done:
			for {
				select {
				case line := <-s.outbox:
					if s.peer.WriteLine(line) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// setPlayState changes the in-room state. A disconnected session keeps its
// state and only the one restored on reconnect changes.
func (s *Session) setPlayState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		s.saved = st
		return
	}
	if s.state != StateTerminated {
		s.state = st
	}
}

// seat binds s to slot of r. Only a session waiting in the lobby can take
// a seat; it reports false for any other state.
func (s *Session) seat(r *Room, slot int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInLobby {
		return false
	}
	s.room = r
	s.slot = slot
	s.state = StateInRoom
	return true
}

func (s *Session) unseat(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room = nil
	s.slot = -1
	if s.state == StateDisconnected {
		s.saved = st
		return
	}
	if s.state != StateTerminated {
		s.state = st
	}
}

func (s *Session) seating() (*Room, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.slot
}

func (s *Session) rosterEntry() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.rtt
}

// live reports whether the session still has a transport.
func (st State) live() bool {
	return st != StateDisconnected && st != StateTerminated
}

func clampRTT(d time.Duration) int {
	ms := int(d.Milliseconds())
	switch {
	case ms < 0:
		return 0
	case ms > maxRTT:
		return maxRTT
	}
	return ms
}
