package mathpuzzle

import (
	"errors"
	"time"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/auth"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

func (e *Engine) register(s *Session, user, pass string) error {
	if err := auth.Validate(user, pass); err != nil {
		return fail(ProtocolError, err.Error())
	}

	switch err := e.store.Register(user, pass); {
	case errors.Is(err, auth.ErrUserExists):
		return fail(AuthError, "Username already exists")
	case err != nil:
		e.logf("AUTH: Registering %s failed: %v", user, err)
		return fail(AuthError, "Registration failed")
	}

	s.send(protocol.RegisterOK())
	e.logf("AUTH: Registered %s", user)

	return nil
}

// login binds user to s. A disconnected session of the same user still
// inside its grace is resumed on s instead.
func (e *Engine) login(s *Session, user, pass string) error {
	if s.State() != StateConnected {
		return fail(StateError, "Already logged in")
	}
	if user == "" || pass == "" {
		return fail(ProtocolError, "Username and password required")
	}

	if err := e.store.Authenticate(user, pass); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			e.logf("AUTH: Authenticating %s failed: %v", user, err)
		}
		return fail(AuthError, "Invalid username or password")
	}

	now := e.now()
	g := e.registry
	g.mu.Lock()
	defer g.mu.Unlock()

	if old := g.byUser[user]; old != nil && old != s {
		old.mu.Lock()
		st, gone := old.state, old.disconnectedAt
		old.mu.Unlock()

		switch {
		case st.live():
			return fail(AuthError, "User already logged in")
		case st == StateDisconnected && now.Sub(gone) < e.cfg.ReconnectGrace:
			e.resumeLocked(s, old, user, now)
			return nil
		default:
			e.logf("AUTH: Reconnect grace for %s expired", user)
			e.purgeLocked(old, "Player disconnected")
		}
	}

	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.user = user
	s.state = StateInLobby
	s.mu.Unlock()
	g.byUser[user] = s

	s.send(protocol.LoginOK(user))
	s.send(e.lobby.listing())
	e.logf("AUTH: %s logged in from %s", user, s.peer.RemoteAddr())

	return nil
}

// resumeLocked moves old's identity, seat and play state onto s and
// replays enough for the client to carry on. Caller holds the registry lock.
func (e *Engine) resumeLocked(s, old *Session, user string, now time.Time) {
	g := e.registry
	r, slot := lockSeat(old)

	old.mu.Lock()
	saved, rtt := old.saved, old.rtt
	old.state = StateTerminated
	old.room, old.slot = nil, -1
	old.mu.Unlock()
	old.abort()
	delete(g.sessions, old.id)

	if r == nil {
		saved, slot = StateInLobby, -1
	}

	s.mu.Lock()
	s.user = user
	s.rtt = rtt
	s.state = saved
	s.room = r
	s.slot = slot
	s.mu.Unlock()
	g.byUser[user] = s

	s.send(protocol.ReconnectOK(user))

	if r != nil {
		r.slots[slot] = s
		r.broadcastLocked(protocol.PlayerReconnected(user), s)
		r.replayLocked(s, slot, now)
		r.mu.Unlock()
	} else {
		s.send(e.lobby.listing())
	}

	e.metrics.reconnects.Inc()
	e.logf("AUTH: %s reconnected", user)
}

// logout leaves any room and unbinds the identity, keeping the connection.
func (e *Engine) logout(s *Session) error {
	g := e.registry
	g.mu.Lock()

	if r, slot := lockSeat(s); r != nil {
		r.vacateLocked(slot, "Player left the room")
		r.mu.Unlock()
	}

	s.mu.Lock()
	user := s.user
	s.user = ""
	s.state = StateConnected
	s.mu.Unlock()

	if g.byUser[user] == s {
		delete(g.byUser, user)
	}
	g.mu.Unlock()

	s.send(protocol.LoggedOut())
	e.logf("AUTH: %s logged out", user)

	return nil
}
