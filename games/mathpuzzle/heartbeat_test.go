package mathpuzzle

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

func TestReconnectWithinGraceResumesRound(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()
	alice, bob := players[0], players[1]

	h.e.Disconnect(alice.s)
	for _, p := range players[1:] {
		expect(t, p.drain(), "PLAYER_DISCONNECTED|alice")
	}
	if alice.s.State() != StateDisconnected {
		t.Fatalf("state = %v", alice.s.State())
	}
	checkRoom(t, r)

	answer(r, bob, 1, false)
	drainAll(players...)

	h.clock.advance(30 * time.Second)
	back := h.connect()
	back.user = "alice"
	back.send("LOGIN|alice|pw")

	lines := back.drain()
	want := []string{"RECONNECT_OK|alice", "ROOM_JOINED|1", "ROOM_STATUS|4|0|", "GAME_START|", "TIMER|150", "PLAYER_SUBMITTED|1|bob"}
	if len(lines) != len(want) {
		t.Fatalf("replay = %q", lines)
	}
	for i, prefix := range want {
		if len(lines[i]) < len(prefix) || lines[i][:len(prefix)] != prefix {
			t.Fatalf("replay line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
	_, fields := protocol.Split(lines[3])
	if fields[1] != protocol.Hidden || fields[2] == protocol.Hidden {
		t.Fatalf("resumed view = %q", fields[1:5])
	}

	for _, p := range players[1:] {
		expect(t, p.drain(), "PLAYER_RECONNECTED|alice")
	}
	if back.s.State() != StateInGame {
		t.Fatalf("resumed state = %v", back.s.State())
	}
	if h.e.registry.Lookup("alice") != back.s || h.e.registry.Len() != 4 {
		t.Fatal("old session still registered")
	}
	checkRoom(t, r)

	players[0] = back
	for slot, p := range players {
		if slot != 1 {
			answer(r, p, slot, false)
		}
	}
	expect(t, back.drain(), "ROUND_END|WIN|Round 1/5")

	if got := testutil.ToFloat64(h.e.metrics.reconnects); got != 1 {
		t.Fatalf("reconnects_total = %v", got)
	}
}

func TestReconnectDuringContinueWait(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	for slot, p := range players {
		answer(r, p, slot, false)
	}
	players[2].send("READY_NEXT_ROUND")
	drainAll(players...)

	h.e.Disconnect(players[2].s)
	h.clock.advance(5 * time.Second)

	back := h.connect()
	back.send("LOGIN|carol|pw")
	lines := back.drain()
	expect(t, lines, "ROUND_END|WIN|Round 1/5")
	expect(t, lines, "WAIT_CONTINUE|")
	expectNone(t, lines, "GAME_START|")
}

func TestReconnectKeepsReadyFlag(t *testing.T) {
	h := newHarness(t)
	r, players := h.table()

	players[2].send("READY")
	drainAll(players...)

	h.e.Disconnect(players[2].s)
	h.clock.advance(10 * time.Second)

	back := h.connect()
	back.send("LOGIN|carol|pw")
	lines := back.drain()

	expect(t, lines, "RECONNECT_OK|carol")
	expect(t, lines, "ROOM_JOINED|1")
	if got := expect(t, lines, "ROOM_STATUS|"); got != "ROOM_STATUS|4|0|0:alice:0:0|1:bob:0:0|2:carol:1:0|3:dave:0:0" {
		t.Fatalf("ROOM_STATUS = %q", got)
	}
	if !r.ready[2] {
		t.Fatal("ready flag lost across reconnect")
	}
	if back.s.State() != StateReady {
		t.Fatalf("state = %v", back.s.State())
	}
	if _, slot := back.s.seating(); slot != 2 {
		t.Fatalf("slot = %d", slot)
	}
	checkRoom(t, r)
}

func TestReconnectReplaysOwnSubmission(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	answer(r, players[2], 2, false)
	drainAll(players...)

	h.e.Disconnect(players[2].s)
	h.clock.advance(10 * time.Second)

	back := h.connect()
	back.send("LOGIN|carol|pw")
	expect(t, back.drain(), "PLAYER_SUBMITTED|2|carol")

	answer(r, back, 2, false)
	expect(t, back.drain(), "ERROR|Answer already submitted")

	if !r.submitted[2] || r.phase != PhaseRunning {
		t.Fatalf("submitted=%v phase=%v", r.submitted[2], r.phase)
	}
}

func TestGraceExpiryVacatesSeat(t *testing.T) {
	h := newHarness(t)
	r, players := h.startTable()

	h.e.Disconnect(players[0].s)
	drainAll(players...)

	h.e.Tick(h.clock.advance(61 * time.Second))

	for _, p := range players[1:] {
		lines := p.drain()
		expect(t, lines, "PLAYER_LEFT|alice")
		expect(t, lines, "GAME_ABORTED|Player disconnected")
		expect(t, lines, "ROOM_STATUS|3|1|")
	}
	if r.host != 1 || r.slots[0] != nil {
		t.Fatalf("host=%d slot0=%v", r.host, r.slots[0])
	}
	if players[0].s.State() != StateTerminated || h.e.registry.Lookup("alice") != nil {
		t.Fatal("expired session still holds its identity")
	}
	checkRoom(t, r)

	fresh := h.connect()
	fresh.send("LOGIN|alice|pw")
	lines := fresh.drain()
	expect(t, lines, "LOGIN_OK|alice")
	expectNone(t, lines, "RECONNECT_OK")
	if fresh.s.State() != StateInLobby {
		t.Fatalf("state = %v", fresh.s.State())
	}
}

func TestLoginAfterGracePurgesStaleSession(t *testing.T) {
	h := newHarness(t)
	r, players := h.table()

	h.e.Disconnect(players[0].s)
	drainAll(players...)
	h.clock.advance(90 * time.Second)

	fresh := h.connect()
	fresh.send("LOGIN|alice|pw")
	expect(t, fresh.drain(), "LOGIN_OK|alice")

	expect(t, players[1].drain(), "PLAYER_LEFT|alice")
	if r.host != 1 {
		t.Fatalf("host = %d", r.host)
	}
	if h.e.registry.Len() != 4 {
		t.Fatalf("sessions = %d", h.e.registry.Len())
	}
}

func TestPingTimeoutPurgesSilentSession(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.PingTimeout = 30 * time.Second })
	alice, bob := h.login("alice"), h.login("bob")
	alice.send("CREATE_ROOM|Alpha")
	bob.send("JOIN_ROOM|1")
	drainAll(alice, bob)

	h.e.Tick(h.clock.advance(10 * time.Second))
	expect(t, alice.drain(), "PING")
	expect(t, bob.drain(), "PING")

	h.clock.advance(10 * time.Second)
	bob.send("PONG")

	h.e.Tick(h.clock.advance(11 * time.Second))

	if alice.s.State() != StateTerminated {
		t.Fatalf("alice state = %v", alice.s.State())
	}
	if !alice.peer.closed {
		t.Fatal("silent peer left open")
	}
	expect(t, bob.drain(), "PLAYER_LEFT|alice")

	r := h.e.lobby.get(1)
	if r.host != 1 {
		t.Fatalf("host = %d", r.host)
	}
	if bob.s.State() != StateInRoom {
		t.Fatalf("bob state = %v", bob.s.State())
	}
}

func TestRTTShowsInRoster(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice")
	alice.send("CREATE_ROOM|Alpha")
	alice.drain()

	h.e.Tick(h.clock.advance(10 * time.Second))
	expect(t, alice.drain(), "PING")

	h.clock.advance(120 * time.Millisecond)
	alice.send("PONG")

	h.e.Tick(h.clock.advance(2 * time.Second))
	expect(t, alice.drain(), "ROOM_STATUS|1|0|0:alice:0:120")
}

func TestClampRTT(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{-time.Second, 0},
		{0, 0},
		{250 * time.Millisecond, 250},
		{time.Minute, maxRTT},
	}

	for _, tc := range tests {
		if got := clampRTT(tc.in); got != tc.want {
			t.Errorf("clampRTT(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLobbyRefresh(t *testing.T) {
	h := newHarness(t)
	idle := h.login("idle")
	host := h.login("host")
	host.send("CREATE_ROOM|Alpha")
	host.drain()

	h.e.Tick(h.clock.advance(2 * time.Second))
	expectNone(t, idle.drain(), "ROOM_LIST")

	h.e.Tick(h.clock.advance(3 * time.Second))
	if got := expect(t, idle.drain(), "ROOM_LIST"); got != "ROOM_LIST|1:Alpha:1" {
		t.Fatalf("ROOM_LIST = %q", got)
	}
	expectNone(t, host.drain(), "ROOM_LIST")
}

func TestRosterNotRefreshedDuringGame(t *testing.T) {
	h := newHarness(t)
	_, players := h.startTable()

	h.e.Tick(h.clock.advance(2 * time.Second))
	lines := players[0].drain()
	expect(t, lines, "TIMER|178")
	expectNone(t, lines, "ROOM_STATUS")
}
