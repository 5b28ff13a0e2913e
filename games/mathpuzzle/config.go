package mathpuzzle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/puzzle"
)

const (
	welcomeText  = "Math Puzzle Game Server v1.0"
	shutdownText = "Server is shutting down"
	maxRTT       = 9999
	maxRoomName  = 32
)

// Config tunes the engine. Zero fields fall back to DefaultConfig.
type Config struct {
	MinPlayers     int
	TotalRounds    int
	RoundDuration  time.Duration
	PingInterval   time.Duration
	PingTimeout    time.Duration
	ReconnectGrace time.Duration
	StatusInterval time.Duration
	LobbyRefresh   time.Duration
	MaxClients     int
	MaxRooms       int
	StrictVerify   bool
	CommandRate    float64
	CommandBurst   int
	OutboxSize     int

	// Seed makes room puzzles reproducible when non-zero.
	Seed uint64

	// Now replaces the wall clock, for tests.
	Now func() time.Time

	Logf func(format string, args ...any)

	Registerer prometheus.Registerer
}

func DefaultConfig() Config {
	return Config{
		MinPlayers:     puzzle.Players,
		TotalRounds:    5,
		RoundDuration:  180 * time.Second,
		PingInterval:   10 * time.Second,
		PingTimeout:    30 * time.Second,
		ReconnectGrace: 60 * time.Second,
		StatusInterval: 2 * time.Second,
		LobbyRefresh:   5 * time.Second,
		MaxClients:     100,
		MaxRooms:       25,
		CommandRate:    20,
		CommandBurst:   40,
		OutboxSize:     64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.MinPlayers < 1 || c.MinPlayers > puzzle.Players {
		c.MinPlayers = d.MinPlayers
	}
	if c.TotalRounds < 1 {
		c.TotalRounds = d.TotalRounds
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = d.RoundDuration
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.ReconnectGrace <= 0 {
		c.ReconnectGrace = d.ReconnectGrace
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = d.StatusInterval
	}
	if c.LobbyRefresh <= 0 {
		c.LobbyRefresh = d.LobbyRefresh
	}
	if c.MaxClients < 1 {
		c.MaxClients = d.MaxClients
	}
	if c.MaxRooms < 1 {
		c.MaxRooms = d.MaxRooms
	}
	if c.CommandRate <= 0 {
		c.CommandRate = d.CommandRate
	}
	if c.CommandBurst < 1 {
		c.CommandBurst = d.CommandBurst
	}
	if c.OutboxSize < 1 {
		c.OutboxSize = d.OutboxSize
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logf == nil {
		c.Logf = func(string, ...any) {}
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.NewRegistry()
	}

	return c
}
