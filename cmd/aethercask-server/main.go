// Command aethercask-server opens a store directory and serves it over the
// wire protocol defined in internal/protocol.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jassi-singh/aethercask/internal/config"
	"github.com/jassi-singh/aethercask/internal/engine"
	"github.com/jassi-singh/aethercask/internal/server"
	flag "github.com/spf13/pflag"
)

func main() {
	addr := flag.StringP("addr", "a", config.DefaultAddr, "listen address")
	engineTag := flag.String("engine", config.DefaultEngine, "storage engine: kvs or sled")
	configPath := flag.StringP("config", "c", "", "path to a YAML config file (default: aethercask.yml if present)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("main: failed to load configuration", "error", err)
		os.Exit(1)
	}
	if flag.CommandLine.Changed("addr") {
		cfg.ADDR = *addr
	}
	if flag.CommandLine.Changed("engine") {
		cfg.ENGINE = *engineTag
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LOG_LEVEL),
	})))

	store, err := engine.Open(cfg)
	if err != nil {
		slog.Error("main: failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	srv, err := server.New(cfg.ADDR, cfg.ENGINE, store)
	if err != nil {
		slog.Error("main: failed to initialize server", "error", err)
		os.Exit(1)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		slog.Info("main: shutdown requested")
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("main: server error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
