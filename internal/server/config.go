package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/turtlerace/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Game   *GameSettings   `hcl:"game,block"`
	Rooms  *RoomSettings   `hcl:"rooms,block"`
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings are the rules applied to every new room
type GameSettings struct {
	Tiles          int   `hcl:"tiles,optional"`
	MaxPlayers     int   `hcl:"max_players,optional"`
	MinPlayers     int   `hcl:"min_players,optional"`
	HandSize       int   `hcl:"hand_size,optional"`
	RecycleDiscard *bool `hcl:"recycle_discard,optional"`
}

// RoomSettings controls how long abandoned rooms are kept
type RoomSettings struct {
	IdleTimeout  string `hcl:"idle_timeout,optional"`
	ReapInterval string `hcl:"reap_interval,optional"`
}

const (
	defaultAddress      = "localhost"
	defaultPort         = 8080
	defaultLogLevel     = "info"
	defaultIdleTimeout  = "10m"
	defaultReapInterval = "1m"
)

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Game == nil {
		c.Game = &GameSettings{}
	}
	if c.Rooms == nil {
		c.Rooms = &RoomSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}

	rules := game.DefaultConfig()
	if c.Game.Tiles == 0 {
		c.Game.Tiles = rules.Tiles
	}
	if c.Game.MaxPlayers == 0 {
		c.Game.MaxPlayers = rules.MaxPlayers
	}
	if c.Game.MinPlayers == 0 {
		c.Game.MinPlayers = rules.MinPlayers
	}
	if c.Game.HandSize == 0 {
		c.Game.HandSize = rules.HandSize
	}
	if c.Game.RecycleDiscard == nil {
		recycle := rules.RecycleDiscard
		c.Game.RecycleDiscard = &recycle
	}

	if c.Rooms.IdleTimeout == "" {
		c.Rooms.IdleTimeout = defaultIdleTimeout
	}
	if c.Rooms.ReapInterval == "" {
		c.Rooms.ReapInterval = defaultReapInterval
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.Server.LogLevel)
	}

	g := c.Game
	if g.Tiles < 1 {
		return fmt.Errorf("game: tiles must be at least 1, got %d", g.Tiles)
	}
	if g.MinPlayers < 2 {
		return fmt.Errorf("game: min_players must be at least 2, got %d", g.MinPlayers)
	}
	if g.MaxPlayers < g.MinPlayers || g.MaxPlayers > len(game.Turtles) {
		return fmt.Errorf("game: max_players must be between min_players and %d, got %d", len(game.Turtles), g.MaxPlayers)
	}
	if g.HandSize < 1 || g.HandSize*g.MaxPlayers > game.DeckSize {
		return fmt.Errorf("game: hand_size %d cannot be dealt to %d players from %d cards", g.HandSize, g.MaxPlayers, game.DeckSize)
	}

	if _, err := positiveDuration("idle_timeout", c.Rooms.IdleTimeout); err != nil {
		return err
	}
	if _, err := positiveDuration("reap_interval", c.Rooms.ReapInterval); err != nil {
		return err
	}
	return nil
}

func positiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("rooms: invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("rooms: %s must be positive, got %s", field, value)
	}
	return d, nil
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig returns the rules for new rooms
func (c *Config) GameConfig() game.Config {
	return game.Config{
		Tiles:          c.Game.Tiles,
		MinPlayers:     c.Game.MinPlayers,
		MaxPlayers:     c.Game.MaxPlayers,
		HandSize:       c.Game.HandSize,
		RecycleDiscard: *c.Game.RecycleDiscard,
	}
}

// HubOptions converts the room settings. Call Validate first; unparsable
// durations fall back to the defaults.
func (c *Config) HubOptions(seed int64) HubOptions {
	idle, err := time.ParseDuration(c.Rooms.IdleTimeout)
	if err != nil {
		idle, _ = time.ParseDuration(defaultIdleTimeout)
	}
	reap, err := time.ParseDuration(c.Rooms.ReapInterval)
	if err != nil {
		reap, _ = time.ParseDuration(defaultReapInterval)
	}
	return HubOptions{
		Game:         c.GameConfig(),
		IdleTimeout:  idle,
		ReapInterval: reap,
		Seed:         seed,
	}
}
