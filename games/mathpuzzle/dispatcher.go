package mathpuzzle

import (
	"errors"
	"strings"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/puzzle"
)

// Handle decodes and runs one line from s. Errors are answered to s alone.
func (e *Engine) Handle(s *Session, line string) {
	cmd, err := protocol.Decode(line)
	switch {
	case errors.Is(err, protocol.ErrEmpty):
		return
	case errors.Is(err, protocol.ErrUnknownCommand):
		e.reject(s, fail(ProtocolError, "Unknown command"))
		return
	case err != nil:
		e.reject(s, fail(ProtocolError, err.Error()))
		return
	}

	if cmd.Kind != protocol.KindPong && !s.limiter.AllowN(e.now(), 1) {
		e.reject(s, fail(ProtocolError, "Too many messages"))
		return
	}

	e.metrics.commands.WithLabelValues(cmd.Kind.String()).Inc()

	if err := e.dispatch(s, cmd); err != nil {
		e.reject(s, err)
	}
}

func (e *Engine) reject(s *Session, err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		e.logf("GAMES: Session %s: %v", s.id, err)
		pe = &Error{Kind: StateError, Reason: "Internal server error"}
	}

	e.metrics.commandErrors.WithLabelValues(pe.Kind.String()).Inc()
	s.send(protocol.Error(pe.Reason))
}

func (e *Engine) dispatch(s *Session, cmd protocol.Command) error {
	switch cmd.Kind {
	case protocol.KindRegister:
		return e.register(s, cmd.Username, cmd.Password)
	case protocol.KindLogin:
		return e.login(s, cmd.Username, cmd.Password)
	case protocol.KindPong:
		e.pong(s)
		return nil
	}

	if s.State() == StateConnected {
		return fail(AuthError, "Not logged in")
	}

	switch cmd.Kind {
	case protocol.KindLogout:
		return e.logout(s)
	case protocol.KindListRooms:
		s.send(e.lobby.listing())
		return nil
	case protocol.KindCreateRoom:
		return e.createRoom(s, cmd.RoomName)
	case protocol.KindJoinRoom:
		return e.joinRoom(s, cmd.RoomID)
	case protocol.KindLeaveRoom:
		return e.leaveRoom(s)
	case protocol.KindReady:
		return e.toggleReady(s)
	case protocol.KindStartGame:
		return e.hostStart(s)
	case protocol.KindSubmit:
		return e.submit(s, puzzle.Cell{Row: cmd.Row, Col: cmd.Col})
	case protocol.KindReadyNextRound:
		return e.continueReady(s)
	case protocol.KindChat:
		return e.chat(s, cmd.Text)
	}

	return fail(ProtocolError, "Unknown command")
}

func (e *Engine) createRoom(s *Session, name string) error {
	if s.State() != StateInLobby {
		return fail(StateError, "Must be in lobby to create room")
	}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return fail(ProtocolError, "Room name required")
	case len([]rune(name)) > maxRoomName, strings.ContainsAny(name, "|:"):
		return fail(ProtocolError, "Invalid room name")
	}

	rng := e.roomRNG()
	seated := true
	r := e.lobby.add(func(id int) *Room {
		r := newRoom(e, id, name, rng)
		r.mu.Lock()
		if !r.seatLocked(s, 0) {
			r.mu.Unlock()
			seated = false
			return nil
		}
		return r
	})
	switch {
	case !seated:
		return fail(StateError, "Must be in lobby to create room")
	case r == nil:
		return fail(CapacityError, "Could not create room")
	}
	defer r.mu.Unlock()

	e.metrics.roomsOpen.Inc()

	user := s.Username()
	s.send(protocol.RoomCreated(r.id, r.name))
	s.send(protocol.RoomJoined(r.id))
	r.broadcastLocked(protocol.PlayerJoined(0, user), nil)
	r.broadcastRosterLocked()

	e.logf("GAMES: %s created room %d (%s)", user, r.id, r.name)

	return nil
}

func (e *Engine) joinRoom(s *Session, id int) error {
	if s.State() != StateInLobby {
		return fail(StateError, "Must be in lobby to join room")
	}

	r := e.lobby.get(id)
	if r == nil {
		return fail(StateError, "Room not found")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return fail(StateError, "Room not found")
	case r.inGameLocked():
		return fail(StateError, "Game already in progress")
	}

	slot := r.freeSlotLocked()
	if slot < 0 {
		return fail(CapacityError, "Room is full")
	}
	if !r.seatLocked(s, slot) {
		return fail(StateError, "Must be in lobby to join room")
	}

	user := s.Username()
	s.send(protocol.RoomJoined(r.id))
	r.broadcastLocked(protocol.PlayerJoined(slot, user), nil)
	r.broadcastRosterLocked()

	e.logf("GAMES: %s joined room %d in slot %d", user, r.id, slot)

	return nil
}

func (e *Engine) leaveRoom(s *Session) error {
	r, slot := lockSeat(s)
	if r == nil {
		return fail(StateError, "Not in a room")
	}
	r.vacateLocked(slot, "Player left the room")
	r.mu.Unlock()

	s.send(protocol.LeftRoom())
	s.send(e.lobby.listing())

	return nil
}

func (e *Engine) toggleReady(s *Session) error {
	r, slot := lockSeat(s)
	if r == nil {
		return fail(StateError, "Must be in room to ready")
	}
	defer r.mu.Unlock()

	if r.inGameLocked() {
		return fail(StateError, "Game already in progress")
	}

	r.ready[slot] = !r.ready[slot]
	if r.ready[slot] {
		s.setPlayState(StateReady)
	} else {
		s.setPlayState(StateInRoom)
	}
	r.broadcastRosterLocked()

	if r.countLocked() < puzzle.Players {
		return nil
	}
	for i := range r.slots {
		if !r.ready[i] {
			return nil
		}
	}

	r.startGameLocked()

	return nil
}

func (e *Engine) hostStart(s *Session) error {
	r, slot := lockSeat(s)
	if r == nil {
		return fail(StateError, "Must be in room to start game")
	}
	defer r.mu.Unlock()

	if r.inGameLocked() {
		return fail(StateError, "Game already in progress")
	}
	if slot != r.host {
		return fail(AuthorizationError, "Only the host can start the game")
	}
	if n := r.countLocked(); n < e.cfg.MinPlayers {
		return failf(CapacityError, "Need %d players to start game (currently %d)", e.cfg.MinPlayers, n)
	}

	r.startGameLocked()

	return nil
}

func (e *Engine) submit(s *Session, cell puzzle.Cell) error {
	r, slot := lockSeat(s)
	if r == nil {
		return fail(StateError, "Not in game")
	}
	defer r.mu.Unlock()

	return r.submitLocked(s, slot, cell)
}

func (e *Engine) continueReady(s *Session) error {
	r, slot := lockSeat(s)
	if r == nil {
		return fail(StateError, "Not waiting for continue")
	}
	defer r.mu.Unlock()

	return r.continueLocked(s, slot)
}

func (e *Engine) chat(s *Session, text string) error {
	r, _ := lockSeat(s)
	if r == nil {
		return fail(StateError, "Must be in a room to chat")
	}
	defer r.mu.Unlock()

	r.broadcastLocked(protocol.Chat(s.Username(), text), nil)

	return nil
}
