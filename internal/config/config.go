package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ModeHost    = "host"
	ModeConnect = "connect"

	DefaultPort = 1503
)

// PeerConfig configures one squaresctl peer.
type PeerConfig struct {
	Name     string
	Mode     string
	Host     string
	Bind     string
	Port     int
	LogLevel string
	Connect  ConnectConfig
	Status   StatusConfig
}

// ConnectConfig bounds the initial dial in connect mode. A dropped session
// is never redialled.
type ConnectConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// StatusConfig configures the optional HTTP status server.
type StatusConfig struct {
	Enabled     bool
	Addr        string
	CorsOrigins []string
}

type fileConfig struct {
	Name     string `toml:"name"`
	Mode     string `toml:"mode"`
	Host     string `toml:"host"`
	Bind     string `toml:"bind"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	Connect  struct {
		Attempts     int    `toml:"attempts"`
		InitialDelay string `toml:"initial_delay"`
		MaxDelay     string `toml:"max_delay"`
	} `toml:"connect"`
	Status struct {
		Enabled     bool     `toml:"enabled"`
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
	} `toml:"status"`
}

func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		Name:     "player",
		Mode:     ModeConnect,
		Host:     "localhost",
		Port:     DefaultPort,
		LogLevel: "info",
		Connect: ConnectConfig{
			Attempts:     5,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		Status: StatusConfig{
			Addr:        "127.0.0.1:9503",
			CorsOrigins: []string{"http://localhost:3000"},
		},
	}
}

// LoadPeerConfig applies the keys defined in path on top of the defaults.
func LoadPeerConfig(path string) (PeerConfig, error) {
	cfg := DefaultPeerConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return PeerConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("name") {
		cfg.Name = raw.Name
	}
	if meta.IsDefined("mode") {
		cfg.Mode = strings.ToLower(strings.TrimSpace(raw.Mode))
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("bind") {
		cfg.Bind = strings.TrimSpace(raw.Bind)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("connect", "attempts") {
		cfg.Connect.Attempts = raw.Connect.Attempts
	}
	if meta.IsDefined("connect", "initial_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Connect.InitialDelay))
		if err != nil {
			return PeerConfig{}, fmt.Errorf("parse connect.initial_delay: %w", err)
		}
		cfg.Connect.InitialDelay = d
	}
	if meta.IsDefined("connect", "max_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Connect.MaxDelay))
		if err != nil {
			return PeerConfig{}, fmt.Errorf("parse connect.max_delay: %w", err)
		}
		cfg.Connect.MaxDelay = d
	}
	if meta.IsDefined("status", "enabled") {
		cfg.Status.Enabled = raw.Status.Enabled
	}
	if meta.IsDefined("status", "addr") {
		cfg.Status.Addr = strings.TrimSpace(raw.Status.Addr)
	}
	if meta.IsDefined("status", "cors_origins") {
		cfg.Status.CorsOrigins = normalizeOrigins(raw.Status.CorsOrigins)
	}

	if err := cfg.Validate(); err != nil {
		return PeerConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (c PeerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.Mode {
	case ModeHost:
	case ModeConnect:
		if strings.TrimSpace(c.Host) == "" {
			return fmt.Errorf("host is required in connect mode")
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeHost, ModeConnect, c.Mode)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.Connect.Attempts < 1 {
		return fmt.Errorf("connect attempts must be at least 1")
	}
	if c.Connect.InitialDelay < 0 || c.Connect.MaxDelay < 0 {
		return fmt.Errorf("connect delays must not be negative")
	}
	if c.Status.Enabled && strings.TrimSpace(c.Status.Addr) == "" {
		return fmt.Errorf("status addr is required when status is enabled")
	}
	return nil
}

func (c PeerConfig) IsHost() bool {
	return c.Mode == ModeHost
}

// ListenAddr is where a host-mode peer accepts its opponent.
func (c PeerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// DialAddr is the opponent address for connect mode.
func (c PeerConfig) DialAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RetryDelay is the pause before dial attempt n (1-based): zero for the
// first attempt, then doubling from InitialDelay up to MaxDelay.
func (c ConnectConfig) RetryDelay(attempt int) time.Duration {
	if attempt <= 1 || c.InitialDelay <= 0 {
		return 0
	}
	delay := c.InitialDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
