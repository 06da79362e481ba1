package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"parrotdb/internal/app"
	"parrotdb/pkg/config"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/shutdown"
)

// version is set via ldflags during release builds.
var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	config.ApplyFlags(cfg, addrVal, dbVal, setFlags)

	logger.Init(cfg.Logging.Level)
	defer logger.Sync()

	a, err := app.New(cfg, version)
	if err != nil {
		shutdown.Abort("startup", err, cfg.Storage.DBPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	runErr := a.Run(ctx)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	a.Close(shutdownCtx)

	if runErr != nil {
		shutdown.Abort("server", runErr, cfg.Storage.DBPath)
	}
}
