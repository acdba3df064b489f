package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/turtlerace/internal/server"
	"golang.org/x/sync/errgroup"
)

// ServeCmd runs the room server
type ServeCmd struct {
	Config   string `kong:"default='turtlerace.hcl',help='HCL config file (missing file means defaults)'"`
	Addr     string `kong:"help='Listen address, overrides server.address and server.port'"`
	LogLevel string `kong:"help='Log level (debug, info, warn, error)'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
	Seed     *int64 `kong:"help='Deterministic RNG seed; rooms with the same id deal the same game'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := c.applyFlags(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", c.Config, err)
	}

	level, _ := log.ParseLevel(cfg.Server.LogLevel)
	logger := setupLogger(os.Stderr, level)

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	}

	opts := cfg.HubOptions(seed)
	hub := server.NewHub(opts, quartz.NewReal(), logger.WithPrefix("hub"))
	srv := server.NewServer(hub, logger)

	logger.Info("Starting turtle race server",
		"address", cfg.Address(),
		"tiles", opts.Game.Tiles,
		"players", fmt.Sprintf("%d-%d", opts.Game.MinPlayers, opts.Game.MaxPlayers),
		"hand_size", opts.Game.HandSize,
		"recycle_discard", opts.Game.RecycleDiscard,
		"idle_timeout", opts.IdleTimeout,
	)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Address())
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func (c *ServeCmd) applyFlags(cfg *server.Config) error {
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", c.Addr, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid --addr port %q", port)
		}
		cfg.Server.Address = host
		cfg.Server.Port = p
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	return nil
}
