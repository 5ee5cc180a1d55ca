package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
	"github.com/zatekoja/telemedbooking/pkg/config"
)

func main() {
	var printOnly bool
	var timeout time.Duration

	flag.BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Migration timeout")
	flag.Parse()

	if printOnly {
		fmt.Print(postgres.Schema())
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("telemedbooking-migrate", cfg.Log.Environment, cfg.Log.Level)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
