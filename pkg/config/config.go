package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cbodonnell/vibemod/pkg/game"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/random"
	"github.com/cbodonnell/vibemod/pkg/spawns"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// RelayConfig configures cmd/relay.
type RelayConfig struct {
	Port              int      `env:"VIBEMOD_RELAY_PORT" envDefault:"8080"`
	LogLevel          string   `env:"VIBEMOD_LOG_LEVEL" envDefault:"info"`
	FirebaseProjectID string   `env:"VIBEMOD_FIREBASE_PROJECT_ID"`
	FirebaseAPIKey    string   `env:"VIBEMOD_FIREBASE_API_KEY"`
	MaxParticipants   int      `env:"VIBEMOD_MAX_PARTICIPANTS" envDefault:"16"`
	SendBufferSize    int      `env:"VIBEMOD_SEND_BUFFER_SIZE" envDefault:"256"`
	OriginPatterns    []string `env:"VIBEMOD_ORIGIN_PATTERNS" envSeparator:","`
	TLSCertFile       string   `env:"VIBEMOD_TLS_CERT_FILE"`
	TLSKeyFile        string   `env:"VIBEMOD_TLS_KEY_FILE"`
}

// LoadRelay reads the environment, then lets command line flags override it.
func LoadRelay(args []string) (*RelayConfig, error) {
	cfg := &RelayConfig{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port to listen on")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.FirebaseProjectID, "firebase-project-id", cfg.FirebaseProjectID, "Firebase project verifying join tokens, anonymous access if empty")
	fs.IntVar(&cfg.MaxParticipants, "max-participants", cfg.MaxParticipants, "Maximum participants per room")
	fs.IntVar(&cfg.SendBufferSize, "send-buffer-size", cfg.SendBufferSize, "Frames queued per participant before it is disconnected")
	fs.StringVar(&cfg.TLSCertFile, "tls-cert", cfg.TLSCertFile, "TLS certificate file")
	fs.StringVar(&cfg.TLSKeyFile, "tls-key", cfg.TLSKeyFile, "TLS key file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("tls cert and key must be set together")
	}
	return cfg, nil
}

// PeerConfig configures cmd/peer.
type PeerConfig struct {
	RelayURL string `env:"VIBEMOD_RELAY_URL" envDefault:"http://localhost:8080"`
	Room     string `env:"VIBEMOD_ROOM" envDefault:"lobby"`
	Name     string `env:"VIBEMOD_NAME"`
	Token    string `env:"VIBEMOD_TOKEN"`
	APIPort  int    `env:"VIBEMOD_API_PORT" envDefault:"9090"`
	LogLevel string `env:"VIBEMOD_LOG_LEVEL" envDefault:"info"`
	// DatabaseURL selects where round results are saved: sqlite://<path> or
	// postgres://... Results are not saved when empty.
	DatabaseURL string `env:"VIBEMOD_DATABASE_URL"`

	Mode            string        `env:"VIBEMOD_MODE" envDefault:"hide-and-seek"`
	RoundTime       time.Duration `env:"VIBEMOD_ROUND_TIME"`
	PrepTime        time.Duration `env:"VIBEMOD_PREP_TIME"`
	MinParticipants int           `env:"VIBEMOD_MIN_PARTICIPANTS"`
	MaxParticipants int           `env:"VIBEMOD_MAX_PARTICIPANTS"`
	Seed            int64         `env:"VIBEMOD_SEED"`
	TickInterval    time.Duration `env:"VIBEMOD_TICK_INTERVAL" envDefault:"100ms"`
	AutoStart       bool          `env:"VIBEMOD_AUTO_START"`
	AutoLobbyDelay  time.Duration `env:"VIBEMOD_AUTO_LOBBY_DELAY" envDefault:"10s"`

	// Spawn point sets, formatted "x,y,z;x,y,z"
	PlayerSpawns string `env:"VIBEMOD_PLAYER_SPAWNS"`
	HideSpawns   string `env:"VIBEMOD_HIDE_SPAWNS"`
	SeekSpawns   string `env:"VIBEMOD_SEEK_SPAWNS"`
}

// LoadPeer reads the environment, then lets command line flags override it.
func LoadPeer(args []string) (*PeerConfig, error) {
	cfg := &PeerConfig{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("peer", flag.ContinueOnError)
	fs.StringVar(&cfg.RelayURL, "relay", cfg.RelayURL, "Relay server URL")
	fs.StringVar(&cfg.Room, "room", cfg.Room, "Room to join")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Display name")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Join token")
	fs.IntVar(&cfg.APIPort, "api-port", cfg.APIPort, "Control API port, disabled if 0")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Round result database URL")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Game mode: hide-and-seek, infection or sandbox")
	fs.DurationVar(&cfg.RoundTime, "round-time", cfg.RoundTime, "Round time override")
	fs.DurationVar(&cfg.PrepTime, "prep-time", cfg.PrepTime, "Preparation time override")
	fs.IntVar(&cfg.MinParticipants, "min-participants", cfg.MinParticipants, "Minimum participants override")
	fs.IntVar(&cfg.MaxParticipants, "max-participants", cfg.MaxParticipants, "Maximum participants override")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Role assignment seed, random if 0")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "Coordinator tick interval")
	fs.BoolVar(&cfg.AutoStart, "auto-start", cfg.AutoStart, "Start rounds automatically when enough participants joined")
	fs.DurationVar(&cfg.AutoLobbyDelay, "auto-lobby-delay", cfg.AutoLobbyDelay, "Delay before an ended round returns to the lobby with -auto-start")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Room == "" {
		return nil, fmt.Errorf("room is required")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive")
	}
	return cfg, nil
}

// GameConfig builds the coordinator configuration.
func (c *PeerConfig) GameConfig() (game.Config, error) {
	mode, err := types.ParseGameMode(c.Mode)
	if err != nil {
		return game.Config{}, err
	}
	if c.RoundTime < 0 || c.PrepTime < 0 {
		return game.Config{}, fmt.Errorf("round and prep time must not be negative")
	}
	if c.MinParticipants > 0 && c.MaxParticipants > 0 && c.MinParticipants > c.MaxParticipants {
		return game.Config{}, fmt.Errorf("min participants %d exceeds max participants %d", c.MinParticipants, c.MaxParticipants)
	}

	cfg := game.Config{
		Mode:            mode,
		RoundTime:       c.RoundTime,
		PrepTime:        c.PrepTime,
		MinParticipants: c.MinParticipants,
		MaxParticipants: c.MaxParticipants,
		Seed:            c.Seed,
	}

	sets := spawns.Sets{}
	for _, s := range []struct {
		name   string
		value  string
		points *[]spawns.Point
	}{
		{name: "player", value: c.PlayerSpawns, points: &sets.Player},
		{name: "hide", value: c.HideSpawns, points: &sets.Hide},
		{name: "seek", value: c.SeekSpawns, points: &sets.Seek},
	} {
		if s.value == "" {
			continue
		}
		points, err := spawns.ParsePoints(s.value)
		if err != nil {
			return game.Config{}, fmt.Errorf("failed to parse %s spawns: %v", s.name, err)
		}
		*s.points = points
	}
	if len(sets.Player)+len(sets.Hide)+len(sets.Seek) > 0 {
		seed := c.Seed
		if seed == 0 {
			seed, err = random.NewSeed()
			if err != nil {
				return game.Config{}, fmt.Errorf("failed to seed spawns: %v", err)
			}
		}
		cfg.Spawns = spawns.NewSetSpawner(sets, seed)
	}
	return cfg, nil
}
