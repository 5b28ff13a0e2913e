/*
Copyright © 2026 HexDino
*/

// Package mathpuzzle runs cooperative four-player matrix puzzle games.
//
// Players connect over a line transport, log in, gather in rooms of four
// and solve a run of rounds together. Each player sees three of the four
// matrices; the cell hidden in their own matrix must be found by the others.
//
// Locks are always taken in the order registry, room, session. The lobby
// lock only guards its map.
package mathpuzzle

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/auth"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

var ErrShuttingDown = errors.New("server is shutting down")

type Engine struct {
	cfg     Config
	store   auth.Store
	now     func() time.Time
	logf    func(format string, args ...any)
	metrics *metrics

	registry *Registry
	lobby    *Lobby

	seedMu sync.Mutex
	seeds  *rand.Rand

	clockMu    sync.Mutex
	lastStatus time.Time
	lastPing   time.Time
	lastLobby  time.Time

	closing atomic.Bool
}

func New(cfg Config, store auth.Store) *Engine {
	cfg = cfg.withDefaults()

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	e := &Engine{
		cfg:      cfg,
		store:    store,
		now:      cfg.Now,
		logf:     cfg.Logf,
		metrics:  newMetrics(cfg.Registerer),
		registry: newRegistry(),
		lobby:    newLobby(cfg.MaxRooms),
		seeds:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}

	now := e.now()
	e.lastStatus, e.lastPing, e.lastLobby = now, now, now

	return e
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Lobby() *Lobby { return e.lobby }

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) roomRNG() *rand.Rand {
	e.seedMu.Lock()
	defer e.seedMu.Unlock()
	return rand.New(rand.NewPCG(e.seeds.Uint64(), e.seeds.Uint64()))
}

// Connect registers a new connection and greets it.
func (e *Engine) Connect(peer Peer) (*Session, error) {
	if e.closing.Load() {
		return nil, ErrShuttingDown
	}

	g := e.registry
	g.mu.Lock()
	if len(g.sessions) >= e.cfg.MaxClients {
		g.mu.Unlock()
		return nil, ErrServerFull
	}
	s := newSession(peer, e.cfg, e.now())
	g.sessions[s.id] = s
	g.mu.Unlock()

	s.send(protocol.Welcome(welcomeText))
	e.logf("SERVE: Session %s connected from %s", s.id, peer.RemoteAddr())
	e.updateGauges()

	return s, nil
}

// Disconnect handles an abrupt transport loss. Authenticated sessions keep
// their seat for the reconnect grace; anonymous ones are dropped.
func (e *Engine) Disconnect(s *Session) {
	g := e.registry
	g.mu.Lock()
	if g.sessions[s.id] != s {
		g.mu.Unlock()
		return
	}
	s.mu.Lock()

	st := s.state
	if !st.live() {
		s.mu.Unlock()
		g.mu.Unlock()
		return
	}

	if s.user == "" {
		s.state = StateTerminated
		s.mu.Unlock()
		delete(g.sessions, s.id)
		g.mu.Unlock()

		s.close()
		e.logf("SERVE: Session %s closed", s.id)
		e.updateGauges()
		return
	}

	user := s.user
	s.saved = st
	s.state = StateDisconnected
	s.disconnectedAt = e.now()
	s.mu.Unlock()
	g.mu.Unlock()

	s.close()

	if r, _ := lockSeat(s); r != nil {
		r.broadcastLocked(protocol.PlayerDisconnected(user), s)
		r.mu.Unlock()
	}

	e.logf("SERVE: %s disconnected, holding their seat for %s", user, e.cfg.ReconnectGrace)
	e.updateGauges()
}

// purgeLocked reclaims s completely: its seat is vacated as if it had left,
// its identity is released and its connection closed. Caller holds the
// registry lock.
func (e *Engine) purgeLocked(s *Session, reason string) {
	// Terminate first so a concurrent join cannot seat s after the vacate.
	s.mu.Lock()
	user := s.user
	s.state = StateTerminated
	s.mu.Unlock()

	if r, slot := lockSeat(s); r != nil {
		r.vacateLocked(slot, reason)
		r.mu.Unlock()
	}

	s.mu.Lock()
	s.room, s.slot = nil, -1
	s.mu.Unlock()

	g := e.registry
	delete(g.sessions, s.id)
	if user != "" && g.byUser[user] == s {
		delete(g.byUser, user)
	}

	s.abort()
}

// Shutdown tells every connected player the server is going away and
// closes their sessions.
func (e *Engine) Shutdown() {
	if !e.closing.CompareAndSwap(false, true) {
		return
	}

	line := protocol.ServerShutdown(shutdownText)
	e.registry.each(State.live, func(s *Session) {
		s.send(line)
		s.close()
	})

	e.logf("SERVE: Engine shut down")
}

// Run drives the game clock once a second until ctx is done, then shuts
// the engine down.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Shutdown()
			return
		case <-ticker.C:
			e.Tick(e.now())
		}
	}
}

func (e *Engine) updateGauges() {
	g := e.registry
	g.mu.Lock()
	live, gone := g.countsLocked()
	g.mu.Unlock()

	e.metrics.sessionsActive.Set(float64(live))
	e.metrics.sessionsDisconnected.Set(float64(gone))
}
