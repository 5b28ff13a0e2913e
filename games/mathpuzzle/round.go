package mathpuzzle

import (
	"fmt"
	"time"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/puzzle"
)

const (
	reasonTimeout = "Time's up!"
	reasonWrong   = "Wrong answer!"
	waitingText   = "Waiting for other players..."
)

// startGameLocked begins a game at round one.
func (r *Room) startGameLocked() {
	r.started = true
	r.round = 1
	r.totalRounds = r.e.cfg.TotalRounds
	r.startRoundLocked()
}

// startRoundLocked deals a fresh puzzle for the current round.
func (r *Room) startRoundLocked() {
	p, err := puzzle.Generate(r.round, r.rng)
	if err != nil {
		r.e.logf("GAMES: Room %d round %d: %v", r.id, r.round, err)
		r.broadcastLocked(protocol.GameAborted("Could not generate puzzle"), nil)
		r.resetLocked()
		r.broadcastRosterLocked()
		return
	}

	r.puzzle = p
	r.phase = PhaseRunning
	r.deadline = r.e.now().Add(r.e.cfg.RoundDuration)
	r.answers = [puzzle.Players]puzzle.Cell{}
	r.submitted = [puzzle.Players]bool{}
	r.continueReady = [puzzle.Players]bool{}

	for slot, s := range r.slots {
		if s == nil {
			continue
		}
		s.setPlayState(StateInGame)
		s.send(protocol.GameStart(p.Equation(), p.View(slot), r.round, r.totalRounds))
	}

	r.e.metrics.roundsStarted.Inc()
	r.e.logf("GAMES: Room %d round %d/%d started (%s)", r.id, r.round, r.totalRounds, p.Equation())
}

func (r *Room) submitLocked(s *Session, slot int, cell puzzle.Cell) error {
	if r.phase != PhaseRunning || s.State() != StateInGame {
		return fail(StateError, "Not in game")
	}
	if !cell.InBounds() {
		return fail(ProtocolError, "Invalid coordinates")
	}
	if r.submitted[slot] {
		return fail(StateError, "Answer already submitted")
	}

	r.answers[slot] = cell
	r.submitted[slot] = true
	r.broadcastLocked(protocol.PlayerSubmitted(slot, s.Username()), nil)

	for i, o := range r.slots {
		if o != nil && !r.submitted[i] {
			return nil
		}
	}

	r.resolveLocked()

	return nil
}

// resolveLocked settles a running round. Any later attempt for the same
// round finds the phase moved on and does nothing.
func (r *Room) resolveLocked() {
	if r.phase != PhaseRunning {
		return
	}

	if puzzle.Verify(r.puzzle, r.answers, r.occupiedLocked(), r.e.cfg.StrictVerify) {
		r.winLocked()
	} else {
		r.loseLocked(reasonWrong, "wrong")
	}
}

func (r *Room) winLocked() {
	if r.round < r.totalRounds {
		r.phase = PhaseWaitingContinue
		r.continueReady = [puzzle.Players]bool{}
		r.broadcastLocked(protocol.RoundEndWin(r.roundEndText()), nil)
		r.e.metrics.roundsResolved.WithLabelValues("round_win").Inc()
		r.e.logf("GAMES: Room %d cleared round %d/%d", r.id, r.round, r.totalRounds)
		return
	}

	r.broadcastLocked(protocol.GameEndWin(fmt.Sprintf("Congratulations! You completed all %d rounds!", r.totalRounds)), nil)
	r.e.metrics.roundsResolved.WithLabelValues("game_win").Inc()
	r.e.logf("GAMES: Room %d won all %d rounds", r.id, r.totalRounds)
	r.resetLocked()
	r.broadcastRosterLocked()
}

func (r *Room) loseLocked(reason, outcome string) {
	r.broadcastLocked(protocol.GameEndLose(reason, r.puzzle.SolutionText()), nil)
	r.e.metrics.roundsResolved.WithLabelValues(outcome).Inc()
	r.e.logf("GAMES: Room %d lost round %d: %s", r.id, r.round, reason)
	r.resetLocked()
	r.broadcastRosterLocked()
}

func (r *Room) roundEndText() string {
	return fmt.Sprintf("Round %d/%d complete! Waiting for all players to continue...", r.round, r.totalRounds)
}

// tickLocked advances the round timer.
func (r *Room) tickLocked(now time.Time) {
	if r.phase != PhaseRunning {
		return
	}

	left := r.remaining(now)
	if left <= 0 {
		r.loseLocked(reasonTimeout, "timeout")
		return
	}
	r.broadcastLocked(protocol.Timer(left), nil)
}

// remaining is the whole seconds left in the round, rounded up.
func (r *Room) remaining(now time.Time) int {
	d := r.deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func (r *Room) continueLocked(s *Session, slot int) error {
	if r.phase != PhaseWaitingContinue {
		return fail(StateError, "Not waiting for continue")
	}
	if r.continueReady[slot] {
		return nil
	}
	r.continueReady[slot] = true

	for i, o := range r.slots {
		if o != nil && !r.continueReady[i] {
			s.send(protocol.WaitContinue(waitingText))
			return nil
		}
	}

	r.round++
	r.startRoundLocked()

	return nil
}

// replayLocked resends what a reconnecting player needs to pick up where
// it left off.
func (r *Room) replayLocked(s *Session, slot int, now time.Time) {
	s.send(protocol.RoomJoined(r.id))
	s.send(r.rosterLocked())

	switch r.phase {
	case PhaseRunning:
		s.send(protocol.GameStart(r.puzzle.Equation(), r.puzzle.View(slot), r.round, r.totalRounds))
		s.send(protocol.Timer(r.remaining(now)))
		for i, done := range r.submitted {
			if done && r.slots[i] != nil {
				s.send(protocol.PlayerSubmitted(i, r.slots[i].Username()))
			}
		}
	case PhaseWaitingContinue:
		s.send(protocol.RoundEndWin(r.roundEndText()))
		if r.continueReady[slot] {
			s.send(protocol.WaitContinue(waitingText))
		}
	}
}
