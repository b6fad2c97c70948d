package main

import (
	"flag"
	"log"

	"github.com/danmuck/squares/internal/config"
)

func main() {
	mode := flag.String("mode", config.ModeConnect, "config mode: host|connect")
	output := flag.String("output", "squares.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "cmd/squaresctl/ex.config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadPeerConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config for %q at %s", cfg.Mode, cfg.Name, *input)
		return
	}

	if err := config.WriteTemplate(*output, *mode, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *mode, *output)
}
