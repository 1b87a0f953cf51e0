package main

import (
	"os"

	"github.com/cookiesolver/cookiesolver/internal/config"
)

// loadConfig reads --config if given, otherwise returns defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.NewConfig(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.NewConfig(), nil
	}
	return config.Load(configPath)
}
