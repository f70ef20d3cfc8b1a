package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"zynx/internal/config"
	"zynx/internal/daemon"
)

func main() {
	configPath := flag.String("config", "/data/adb/modules/zynx/zynxd.yaml", "path to config file")
	flag.Parse()

	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Warn("invalid log_level, keeping info", "log_level", cfg.LogLevel, "err", err)
	}

	slog.Info("zynxd starting", "config", *configPath)
	slog.Info("config loaded", "detail", cfg.String())

	if err := daemon.Run(cfg); err != nil {
		slog.Error("daemon error", "err", err)
		os.Exit(1)
	}
}
