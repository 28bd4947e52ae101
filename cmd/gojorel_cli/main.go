// Command gojorel_cli is an interactive shell over a relation transaction.
//
// Usage:
//
//	gojorel_cli [-config gojorel.yaml] [-mapping mapping.yaml] [command args...]
//
// With a command it runs that command, commits and exits. Without one it
// starts an interactive session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/sushant-115/gojorel/config"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/storage"
	internaltelemetry "github.com/sushant-115/gojorel/internal/telemetry"
	"github.com/sushant-115/gojorel/pkg/logger"
	"github.com/sushant-115/gojorel/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config", "", "Path to the YAML config file")
	mappingPath = flag.String("mapping", "", "Path to the relation mapping file (overrides mapping.path)")
	historyFile = flag.String("history", "", "File to keep the interactive command history in")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, usedPath, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *mappingPath != "" {
		cfg.Mapping.Path = *mappingPath
	}
	if cfg.Mapping.Path == "" {
		return errors.New("no relation mapping configured; set mapping.path or pass -mapping")
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	log.Info("configuration loaded", zap.String("config", usedPath), zap.String("storage_driver", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, shutdown, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error("failed to shut down telemetry", zap.Error(err))
		}
	}()
	metrics, err := internaltelemetry.NewRelationMetrics(tel.Meter)
	if err != nil {
		return fmt.Errorf("failed to create relation metrics: %w", err)
	}

	relations, err := mapping.LoadYAMLFile(cfg.Mapping.Path)
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}()

	sh := newShell(ctx, os.Stdout, store, relations, log, metrics, tel.Tracer)
	if args := flag.Args(); len(args) > 0 {
		if err := sh.execute(args); err != nil {
			return err
		}
		return sh.execute([]string{"commit"})
	}
	return interactive(sh)
}

func interactive(sh *shell) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gojorel> ",
		HistoryFile:     *historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start interactive shell: %w", err)
	}
	defer rl.Close()
	sh.out = rl.Stdout()

	fmt.Fprintln(rl.Stdout(), "GojoRel CLI (interactive mode). Type 'help' for commands, 'exit' or 'quit' to leave.")
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		err = sh.execute(strings.Fields(line))
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "Error: %v\n", err)
		}
	}
}
