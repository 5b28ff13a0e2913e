package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle"
)

type Config struct {
	bind     string
	port     int
	gamePort int
	prefix   string
	profile  bool
	tlsCert  string
	tlsKey   string
	verbose  bool
	version  bool

	credentialStore string
	credentialPath  string

	minPlayers     int
	totalRounds    int
	roundDuration  time.Duration
	pingInterval   time.Duration
	pingTimeout    time.Duration
	reconnectGrace time.Duration
	statusInterval time.Duration
	lobbyRefresh   time.Duration
	maxClients     int
	maxRooms       int
	strictVerify   bool
	commandRate    float64
	commandBurst   int
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.gamePort < 1 || c.gamePort > 65535 {
		return fmt.Errorf("invalid game port (must be between 1-65535 inclusive): %d", c.gamePort)
	}
	if c.gamePort == c.port {
		return errors.New("--port and --game-port must differ")
	}

	switch c.credentialStore {
	case "memory":
	case "file", "sqlite":
		if c.credentialPath == "" {
			return fmt.Errorf("--credential-path is required for the %s credential store", c.credentialStore)
		}
	default:
		return fmt.Errorf("invalid credential store (must be file, sqlite or memory): %q", c.credentialStore)
	}

	if c.minPlayers < 1 || c.minPlayers > 4 {
		return fmt.Errorf("invalid minimum players (must be between 1-4 inclusive): %d", c.minPlayers)
	}
	if c.totalRounds < 1 {
		return fmt.Errorf("invalid total rounds (must be at least 1): %d", c.totalRounds)
	}

	for name, d := range map[string]time.Duration{
		"round-duration":  c.roundDuration,
		"ping-interval":   c.pingInterval,
		"ping-timeout":    c.pingTimeout,
		"reconnect-grace": c.reconnectGrace,
		"status-interval": c.statusInterval,
		"lobby-refresh":   c.lobbyRefresh,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid --%s (must be positive): %s", name, d)
		}
	}

	if c.maxClients < 1 || c.maxRooms < 1 {
		return errors.New("--max-clients and --max-rooms must be at least 1")
	}
	if c.commandRate <= 0 || c.commandBurst < 1 {
		return errors.New("--command-rate must be positive and --command-burst at least 1")
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) engineConfig(reg prometheus.Registerer) mathpuzzle.Config {
	return mathpuzzle.Config{
		MinPlayers:     c.minPlayers,
		TotalRounds:    c.totalRounds,
		RoundDuration:  c.roundDuration,
		PingInterval:   c.pingInterval,
		PingTimeout:    c.pingTimeout,
		ReconnectGrace: c.reconnectGrace,
		StatusInterval: c.statusInterval,
		LobbyRefresh:   c.lobbyRefresh,
		MaxClients:     c.maxClients,
		MaxRooms:       c.maxRooms,
		StrictVerify:   c.strictVerify,
		CommandRate:    c.commandRate,
		CommandBurst:   c.commandBurst,
		Logf: func(format string, args ...any) {
			logf(c, format, args...)
		},
		Registerer: reg,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MATHPUZZLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := mathpuzzle.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "mathpuzzle",
		Short:         "A cooperative four-player math puzzle game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MATHPUZZLE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "HTTP port to listen on (env: MATHPUZZLE_PORT)")
	fs.IntVarP(&cfg.gamePort, "game-port", "g", 8888, "TCP port for line protocol clients (env: MATHPUZZLE_GAME_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MATHPUZZLE_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MATHPUZZLE_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MATHPUZZLE_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MATHPUZZLE_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: MATHPUZZLE_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MATHPUZZLE_VERSION)")

	fs.StringVar(&cfg.credentialStore, "credential-store", "file", "where accounts are kept: file, sqlite or memory (env: MATHPUZZLE_CREDENTIAL_STORE)")
	fs.StringVar(&cfg.credentialPath, "credential-path", "users.txt", "path to the credential file or database (env: MATHPUZZLE_CREDENTIAL_PATH)")

	fs.IntVar(&cfg.minPlayers, "min-players", d.MinPlayers, "players needed for the host to start a game (env: MATHPUZZLE_MIN_PLAYERS)")
	fs.IntVar(&cfg.totalRounds, "total-rounds", d.TotalRounds, "rounds in a full game (env: MATHPUZZLE_TOTAL_ROUNDS)")
	fs.DurationVar(&cfg.roundDuration, "round-duration", d.RoundDuration, "time allowed per round (env: MATHPUZZLE_ROUND_DURATION)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", d.PingInterval, "time between heartbeat probes (env: MATHPUZZLE_PING_INTERVAL)")
	fs.DurationVar(&cfg.pingTimeout, "ping-timeout", d.PingTimeout, "silence before a connection is dropped (env: MATHPUZZLE_PING_TIMEOUT)")
	fs.DurationVar(&cfg.reconnectGrace, "reconnect-grace", d.ReconnectGrace, "time a disconnected player keeps their seat (env: MATHPUZZLE_RECONNECT_GRACE)")
	fs.DurationVar(&cfg.statusInterval, "status-interval", d.StatusInterval, "time between room roster refreshes (env: MATHPUZZLE_STATUS_INTERVAL)")
	fs.DurationVar(&cfg.lobbyRefresh, "lobby-refresh", d.LobbyRefresh, "time between lobby room list refreshes (env: MATHPUZZLE_LOBBY_REFRESH)")
	fs.IntVar(&cfg.maxClients, "max-clients", d.MaxClients, "maximum concurrent sessions (env: MATHPUZZLE_MAX_CLIENTS)")
	fs.IntVar(&cfg.maxRooms, "max-rooms", d.MaxRooms, "maximum open rooms (env: MATHPUZZLE_MAX_ROOMS)")
	fs.BoolVar(&cfg.strictVerify, "strict-verify", false, "fail rounds played with vacant slots (env: MATHPUZZLE_STRICT_VERIFY)")
	fs.Float64Var(&cfg.commandRate, "command-rate", d.CommandRate, "commands per second allowed per session (env: MATHPUZZLE_COMMAND_RATE)")
	fs.IntVar(&cfg.commandBurst, "command-burst", d.CommandBurst, "command burst allowed per session (env: MATHPUZZLE_COMMAND_BURST)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("mathpuzzle v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
