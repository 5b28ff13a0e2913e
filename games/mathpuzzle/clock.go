package mathpuzzle

import (
	"time"
)

// Tick advances every periodic concern to now: round timers, roster
// refresh, heartbeat probes, expiry sweeps and lobby refresh. Run calls it
// once a second; tests call it directly with a fake clock.
func (e *Engine) Tick(now time.Time) {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()

	roster := now.Sub(e.lastStatus) >= e.cfg.StatusInterval
	if roster {
		e.lastStatus = now
	}

	for _, r := range e.lobby.snapshot() {
		r.mu.Lock()
		if !r.closed {
			r.tickLocked(now)
			if roster && !r.inGameLocked() {
				r.broadcastRosterLocked()
			}
		}
		r.mu.Unlock()
	}

	if now.Sub(e.lastPing) >= e.cfg.PingInterval {
		e.lastPing = now
		e.ping(now)
	}

	e.sweep(now)

	if now.Sub(e.lastLobby) >= e.cfg.LobbyRefresh {
		e.lastLobby = now
		e.refreshLobby()
	}

	e.updateGauges()
}

func (e *Engine) refreshLobby() {
	line := e.lobby.listing()
	e.registry.each(func(st State) bool { return st == StateInLobby }, func(s *Session) {
		s.send(line)
	})
}
