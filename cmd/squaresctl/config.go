package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/squares/internal/config"
)

// resolveConfig loads the optional config file and applies flags that were
// set explicitly on top of it.
func resolveConfig(args []string, stderr io.Writer) (config.PeerConfig, error) {
	fs := flag.NewFlagSet("squaresctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a peer config file")
	host := fs.Bool("host", false, "wait for an opponent to connect")
	connect := fs.String("connect", "", "opponent host to connect to")
	port := fs.Int("port", config.DefaultPort, "game port")
	name := fs.String("name", "", "player name")
	status := fs.String("status", "", "enable the status server on this address")
	if err := fs.Parse(args); err != nil {
		return config.PeerConfig{}, err
	}

	cfg := config.DefaultPeerConfig()
	if *configPath != "" {
		loaded, err := config.LoadPeerConfig(*configPath)
		if err != nil {
			return config.PeerConfig{}, err
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["host"] && set["connect"] {
		return config.PeerConfig{}, fmt.Errorf("-host and -connect are mutually exclusive")
	}
	if set["host"] && *host {
		cfg.Mode = config.ModeHost
	}
	if set["connect"] {
		cfg.Mode = config.ModeConnect
		cfg.Host = strings.TrimSpace(*connect)
	}
	if set["port"] {
		cfg.Port = *port
	}
	if set["name"] {
		cfg.Name = *name
	}
	if set["status"] {
		cfg.Status.Enabled = true
		cfg.Status.Addr = strings.TrimSpace(*status)
	}

	if err := cfg.Validate(); err != nil {
		return config.PeerConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
