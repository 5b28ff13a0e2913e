package mathpuzzle

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/puzzle"
)

// Phase is the round state of a room.
type Phase int

const (
	PhaseForming Phase = iota
	PhaseRunning
	PhaseWaitingContinue
)

func (p Phase) String() string {
	switch p {
	case PhaseForming:
		return "forming"
	case PhaseRunning:
		return "running"
	case PhaseWaitingContinue:
		return "waiting"
	default:
		return "unknown"
	}
}

// Room is four seats plus the game they play. Every field below mu is
// guarded by it, and methods suffixed Locked expect it held.
type Room struct {
	e    *Engine
	id   int
	name string

	mu            sync.Mutex
	closed        bool
	slots         [puzzle.Players]*Session
	ready         [puzzle.Players]bool
	host          int
	phase         Phase
	started       bool
	puzzle        *puzzle.Puzzle
	round         int
	totalRounds   int
	deadline      time.Time
	answers       [puzzle.Players]puzzle.Cell
	submitted     [puzzle.Players]bool
	continueReady [puzzle.Players]bool
	rng           *rand.Rand
}

func newRoom(e *Engine, id int, name string, rng *rand.Rand) *Room {
	return &Room{
		e:           e,
		id:          id,
		name:        name,
		host:        -1,
		totalRounds: e.cfg.TotalRounds,
		rng:         rng,
	}
}

func (r *Room) ID() int { return r.id }

func (r *Room) Name() string { return r.name }

func (r *Room) countLocked() int {
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *Room) occupiedLocked() [puzzle.Players]bool {
	var out [puzzle.Players]bool
	for i, s := range r.slots {
		out[i] = s != nil
	}
	return out
}

func (r *Room) freeSlotLocked() int {
	for i, s := range r.slots {
		if s == nil {
			return i
		}
	}
	return -1
}

func (r *Room) inGameLocked() bool {
	return r.phase != PhaseForming
}

func (r *Room) broadcastLocked(line string, except *Session) {
	for _, s := range r.slots {
		if s != nil && s != except {
			s.send(line)
		}
	}
}

func (r *Room) rosterLocked() string {
	var entries []protocol.SlotStatus
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		user, rtt := s.rosterEntry()
		entries = append(entries, protocol.SlotStatus{Slot: i, User: user, Ready: r.ready[i], RTT: rtt})
	}
	return protocol.RoomStatus(r.countLocked(), r.host, entries)
}

func (r *Room) broadcastRosterLocked() {
	r.broadcastLocked(r.rosterLocked(), nil)
}

// seatLocked puts s in slot and makes it host if the room has none. It
// leaves the room untouched and reports false when s is no longer in the
// lobby.
func (r *Room) seatLocked(s *Session, slot int) bool {
	if !s.seat(r, slot) {
		return false
	}
	r.slots[slot] = s
	r.ready[slot] = false
	if r.host < 0 {
		r.host = slot
	}
	return true
}

// vacateLocked removes the occupant of slot, aborting any game underway
// with reason. The leaving session is unseated to the lobby; callers
// overwrite its state as needed. Emptied rooms are closed and dropped from
// the lobby.
func (r *Room) vacateLocked(slot int, reason string) {
	s := r.slots[slot]
	if s == nil {
		return
	}
	user := s.Username()

	r.slots[slot] = nil
	r.ready[slot] = false
	r.submitted[slot] = false
	r.continueReady[slot] = false
	s.unseat(StateInLobby)

	r.broadcastLocked(protocol.PlayerLeft(user), nil)

	if r.inGameLocked() {
		r.broadcastLocked(protocol.GameAborted(reason), nil)
		r.e.logf("GAMES: Room %d round %d aborted: %s", r.id, r.round, reason)
		r.resetLocked()
	}

	if r.host == slot {
		r.host = -1
		for i, o := range r.slots {
			if o != nil {
				r.host = i
				break
			}
		}
	}

	if r.countLocked() == 0 {
		r.closed = true
		r.e.lobby.remove(r.id)
		r.e.metrics.roomsOpen.Dec()
		r.e.logf("GAMES: Room %d (%s) closed", r.id, r.name)
		return
	}

	r.broadcastRosterLocked()
}

// resetLocked returns the room to forming with nobody ready.
func (r *Room) resetLocked() {
	r.phase = PhaseForming
	r.started = false
	r.round = 0
	r.puzzle = nil
	r.deadline = time.Time{}
	r.ready = [puzzle.Players]bool{}
	r.submitted = [puzzle.Players]bool{}
	r.continueReady = [puzzle.Players]bool{}
	r.answers = [puzzle.Players]puzzle.Cell{}

	for _, s := range r.slots {
		if s != nil {
			s.setPlayState(StateInRoom)
		}
	}
}

// lockSeat returns the room s sits in, locked, and the slot it holds.
// It returns a nil room when s is not seated.
func lockSeat(s *Session) (*Room, int) {
	for range 3 {
		r, slot := s.seating()
		if r == nil {
			return nil, -1
		}

		r.mu.Lock()
		if !r.closed && slot >= 0 && r.slots[slot] == s {
			return r, slot
		}
		r.mu.Unlock()
	}
	return nil, -1
}
