package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/dmitrijs2005/camvault/internal/server"
	"github.com/dmitrijs2005/camvault/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}
	cfg.CaptureEnabled = true
	if err := cfg.Validate(); err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	app := server.NewApp(cfg, logger)
	if err := app.RunCapture(context.Background()); err != nil {
		os.Exit(1)
	}
}
