// Command gamelib searches the game catalog and adds games to a collection
// from the terminal. It shares the server's configuration and database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/simp-lee/gamelib/internal/app"
	"github.com/simp-lee/gamelib/internal/cli"
	"github.com/simp-lee/gamelib/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gamelib:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := config.SetupConsoleLogger(&cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := app.NewServices(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer svcs.Close(log.Logger)

	console := cli.New(cli.Config{
		Prompter: cli.PromptUI{},
		Out:      os.Stdout,
		Auth:     svcs.Auth,
		Users:    svcs.Users,
		Search:   svcs.Catalog,
		Store:    svcs.Collection,
		Logger:   log.Logger,
	})
	return console.Run(ctx)
}
