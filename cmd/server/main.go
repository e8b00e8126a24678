package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"sicalc/internal/app/server"
	"sicalc/internal/platform/config"
	"sicalc/internal/platform/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("config load failed", "err", err)
	}
	logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logging.Fatal("invalid configuration", "err", err)
	}

	if err := server.Run(cfg); err != nil {
		logging.Fatal("server exited", "err", err)
	}
}
