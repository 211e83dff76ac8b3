package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"paydesk/cmd"
	"paydesk/internal/config"
	"paydesk/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Configuration errors are reported by the command that needs the backend;
	// the logger only needs the LOG_* settings.
	logConfig := config.LoggerConfigFromEnv()
	if cfg, err := config.Load(); err == nil {
		logConfig = cfg.GetLoggerConfig()
	}
	if err := logger.Setup(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting paydesk")

	cmd.Execute()

	log.Debug().Msg("paydesk shutdown")
	os.Exit(0)
}
