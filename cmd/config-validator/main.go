package main

import (
	"fmt"
	"os"

	"github.com/chess10kp/poplaunch/internal/config"
)

func main() {
	configPath := "~/.config/poplaunch/config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fmt.Printf("Validating config: %s\n", configPath)

	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		fmt.Printf("Config validation failed: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Config is valid (backend %q, %d web rules, history in %s store)\n",
		cfg.Backend.Command, len(cfg.Web.Rules), cfg.History.Store)
}
