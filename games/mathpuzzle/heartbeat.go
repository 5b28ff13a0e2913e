package mathpuzzle

import (
	"time"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

func (e *Engine) ping(now time.Time) {
	line := protocol.Ping()
	e.registry.each(State.live, func(s *Session) {
		s.mu.Lock()
		s.lastPingSent = now
		s.mu.Unlock()
		s.send(line)
	})
}

func (e *Engine) pong(s *Session) {
	now := e.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPongAt = now
	if !s.lastPingSent.IsZero() {
		s.rtt = clampRTT(now.Sub(s.lastPingSent))
		e.metrics.rtt.Observe(float64(s.rtt))
	}
}

// sweep purges sessions that stopped answering probes and disconnected
// sessions whose reconnect grace has run out.
func (e *Engine) sweep(now time.Time) {
	g := e.registry
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, x := range g.expiredLocked(now, e.cfg.PingTimeout, e.cfg.ReconnectGrace) {
		e.logf("SERVE: Purging session %s (%s): %s", x.session.id, x.session.Username(), x.reason)
		e.purgeLocked(x.session, "Player disconnected")
	}
}
