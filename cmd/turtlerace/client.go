package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lox/turtlerace/internal/client"
	"github.com/lox/turtlerace/internal/roomcode"
)

// ClientCmd joins a room as a player
type ClientCmd struct {
	URL     string `kong:"default='ws://localhost:8080',help='Server URL'"`
	Room    string `kong:"help='Room code to join (a new one is generated when empty)'"`
	Name    string `kong:"required,help='Player name'"`
	NoColor bool   `kong:"help='Disable coloured output'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	level := log.WarnLevel
	if c.Debug {
		level = log.DebugLevel
	}
	logger := setupLogger(os.Stderr, level)

	room := c.Room
	if room == "" {
		room = roomcode.Generate()
		fmt.Printf("Created room %s, share it with the other players\n", room)
	}

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	renderer := client.NewRenderer(os.Stdout, c.Name, c.NoColor)
	cl, err := client.Dial(ctx, c.URL, room, c.Name, renderer, logger)
	if err != nil {
		return err
	}

	fmt.Println("Commands: start, latest, play <index> [turtle]")
	return cl.Run(ctx, os.Stdin, os.Stdout)
}
