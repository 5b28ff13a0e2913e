package mathpuzzle

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/puzzle"
)

func TestFirstRoundUsesAdditionAndSubtraction(t *testing.T) {
	h := newHarness(t)
	r, _ := h.startTable()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range []puzzle.Operator{r.puzzle.Op1, r.puzzle.Op2} {
		if op != puzzle.Add && op != puzzle.Sub {
			t.Fatalf("round 1 uses %v", op)
		}
	}
	if !r.puzzle.Check() {
		t.Fatal("dealt puzzle does not satisfy its equation")
	}
}

func TestRoundWinAndContinue(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	for slot, p := range players {
		answer(r, p, slot, false)
	}

	for _, p := range players {
		lines := p.drain()
		if n := len(lines); n < 5 {
			t.Fatalf("%s got %q", p.user, lines)
		}
		got := expect(t, lines, "ROUND_END|")
		if got != "ROUND_END|WIN|Round 1/5 complete! Waiting for all players to continue..." {
			t.Fatalf("ROUND_END = %q", got)
		}
	}
	if r.phase != PhaseWaitingContinue {
		t.Fatalf("phase = %v", r.phase)
	}

	players[0].send("SUBMIT|0|0")
	expect(t, players[0].drain(), "ERROR|Not in game")

	for _, p := range players[:3] {
		p.send("READY_NEXT_ROUND")
		expect(t, p.drain(), "WAIT_CONTINUE|Waiting for other players...")
	}

	players[0].send("READY_NEXT_ROUND")
	if lines := players[0].drain(); len(lines) != 0 {
		t.Fatalf("repeated continue produced %q", lines)
	}

	players[3].send("READY_NEXT_ROUND")
	for slot, p := range players {
		line := expect(t, p.drain(), "GAME_START|")
		_, fields := protocol.Split(line)
		if fields[5] != "2" || fields[6] != "5" {
			t.Fatalf("round fields = %q %q", fields[5], fields[6])
		}
		if fields[1+slot] != protocol.Hidden {
			t.Fatalf("slot %d sees its own matrix", slot)
		}
	}

	if r.round != 2 || r.phase != PhaseRunning {
		t.Fatalf("round=%d phase=%v", r.round, r.phase)
	}
	if got := testutil.ToFloat64(h.e.metrics.roundsStarted); got != 2 {
		t.Fatalf("rounds_started_total = %v", got)
	}
}

func TestContinueOutsideWaiting(t *testing.T) {
	h := newHarness(t)
	_, players := h.startTable()

	players[0].send("READY_NEXT_ROUND")
	expect(t, players[0].drain(), "ERROR|Not waiting for continue")
}

func TestWrongAnswerLosesRound(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	r.mu.Lock()
	solution := r.puzzle.SolutionText()
	r.mu.Unlock()

	for slot, p := range players {
		answer(r, p, slot, slot == 2)
	}

	want := protocol.GameEndLose("Wrong answer!", solution)
	for _, p := range players {
		lines := p.drain()
		if got := expect(t, lines, "GAME_END|"); got != want {
			t.Fatalf("GAME_END = %q, want %q", got, want)
		}
		expect(t, lines, "ROOM_STATUS|4|0|0:alice:0:0")
		if p.s.State() != StateInRoom {
			t.Fatalf("%s state = %v", p.user, p.s.State())
		}
	}

	if r.inGameLocked() || r.started {
		t.Fatal("room not back to forming")
	}
	if got := testutil.ToFloat64(h.e.metrics.roundsResolved.WithLabelValues("wrong")); got != 1 {
		t.Fatalf("wrong outcomes = %v", got)
	}
}

func TestSubmitErrors(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	players[0].send("SUBMIT|4|0")
	expect(t, players[0].drain(), "ERROR|Invalid coordinates")

	answer(r, players[0], 0, false)
	for _, p := range players {
		expect(t, p.drain(), "PLAYER_SUBMITTED|0|alice")
	}

	answer(r, players[0], 0, false)
	expect(t, players[0].drain(), "ERROR|Answer already submitted")

	lobby := h.login("erin")
	lobby.send("SUBMIT|0|0")
	expect(t, lobby.drain(), "ERROR|Not in game")
}

func TestTimerAndTimeout(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	r.mu.Lock()
	solution := r.puzzle.SolutionText()
	r.mu.Unlock()

	h.e.Tick(h.clock.advance(time.Second))
	for _, p := range players {
		expect(t, p.drain(), "TIMER|179")
	}

	h.e.Tick(h.clock.advance(179 * time.Second))
	want := protocol.GameEndLose("Time's up!", solution)
	for _, p := range players {
		lines := p.drain()
		if got := expect(t, lines, "GAME_END|"); got != want {
			t.Fatalf("GAME_END = %q, want %q", got, want)
		}
		expectNone(t, lines, "TIMER|")
	}

	h.e.Tick(h.clock.advance(time.Second))
	for _, p := range players {
		lines := p.drain()
		expectNone(t, lines, "GAME_END|")
		expectNone(t, lines, "TIMER|")
	}

	answer(r, players[0], 0, false)
	expect(t, players[0].drain(), "ERROR|Not in game")
}

func TestLateSubmitAfterTimeoutIsRejected(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	for slot, p := range players[:3] {
		answer(r, p, slot, false)
	}
	drainAll(players...)

	h.e.Tick(h.clock.advance(180 * time.Second))
	expect(t, players[3].drain(), "GAME_END|LOSE|Time's up!")

	players[3].send("SUBMIT|0|0")
	lines := players[3].drain()
	expect(t, lines, "ERROR|Not in game")
	expectNone(t, lines, "GAME_END|")
}

func TestSoloGameWithVacantSlots(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.MinPlayers = 1
		c.TotalRounds = 1
	})
	alice := h.login("alice")
	alice.send("CREATE_ROOM|Solo")
	alice.drain()

	alice.send("START_GAME")
	expect(t, alice.drain(), "GAME_START|")

	r := h.e.lobby.get(1)
	answer(r, alice, 0, false)

	lines := alice.drain()
	expect(t, lines, "GAME_END|WIN|Congratulations! You completed all 1 rounds!")
	expect(t, lines, "ROOM_STATUS|1|0|0:alice:0:0")
	if alice.s.State() != StateInRoom {
		t.Fatalf("state = %v", alice.s.State())
	}
}

func TestStrictVerifyFailsVacantSlots(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.MinPlayers = 1
		c.StrictVerify = true
	})
	alice := h.login("alice")
	alice.send("CREATE_ROOM|Solo")
	alice.send("START_GAME")
	alice.drain()

	r := h.e.lobby.get(1)
	answer(r, alice, 0, false)
	expect(t, alice.drain(), "GAME_END|LOSE|Wrong answer!")
}
