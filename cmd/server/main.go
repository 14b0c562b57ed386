package main

import (
	"flag"
	"log"

	"github.com/simp-lee/gamelib/internal/app"
	"github.com/simp-lee/gamelib/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal("failed to load .env: ", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
