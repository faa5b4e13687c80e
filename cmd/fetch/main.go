// Command fetch runs a single batch pass against the configured store and prints the outcome.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"pricewatch/internal/app"
	"pricewatch/internal/batch"
	"pricewatch/internal/config"
	"pricewatch/internal/logger"
	"pricewatch/internal/model"
	"pricewatch/internal/store"
)

func main() {
	var configPath string
	var symbolsCSV string
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.StringVar(&symbolsCSV, "add", "", "comma-separated symbols to register before the pass")
	flag.Parse()

	if err := run(configPath, splitCSV(symbolsCSV)); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, symbols []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// stdout carries the outcome
	cfg.Log.Output = "stderr"
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer deps.Close()

	if len(symbols) > 0 {
		if err := register(ctx, deps.Opener, cfg.Database, symbols); err != nil {
			return err
		}
	}

	out, err := deps.Runner.Run(ctx, &batch.Config{Token: uuid.NewString(), Store: cfg.Database})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return encErr
	}
	return err
}

// register adds symbols through the same store the pass reads. With the
// memory driver this is the only way to give a one-shot pass any work.
func register(ctx context.Context, open store.Opener, cfg store.Config, symbols []string) error {
	conn, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	for _, s := range symbols {
		if err := model.ValidateSymbol(s); err != nil {
			return fmt.Errorf("register %s: %w", s, err)
		}
		if _, _, err := conn.Instruments().AddIfAbsent(ctx, s); err != nil {
			return fmt.Errorf("register %s: %w", s, err)
		}
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
