package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeHost:
		return hostTemplate, nil
	case ModeConnect:
		return connectTemplate, nil
	default:
		return "", fmt.Errorf("unknown config mode: %s", mode)
	}
}

func WriteTemplate(path, mode string, overwrite bool) error {
	template, err := Template(mode)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `name = "host"
mode = "host"
bind = ""
port = 1503
log_level = "info"

[status]
enabled = true
addr = "127.0.0.1:9503"
cors_origins = ["http://localhost:3000"]
`

const connectTemplate = `name = "guest"
mode = "connect"
host = "localhost"
port = 1503
log_level = "info"

[connect]
attempts = 5
initial_delay = "250ms"
max_delay = "5s"

[status]
enabled = false
`
