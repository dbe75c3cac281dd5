package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/revealx-tools/console/internal/api"
	"github.com/revealx-tools/console/internal/config"
	"github.com/revealx-tools/console/internal/session"
	"github.com/revealx-tools/console/internal/session/storage/inmem"
	"github.com/revealx-tools/console/internal/session/storage/postgres"
	"github.com/revealx-tools/console/internal/task"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Initialize the session storage driver
	log.Info().Str("driver", cfg.SessionStorageDriver).Msg("initializing session storage...")
	var sessions session.Storage
	switch cfg.SessionStorageDriver {
	case "postgres":
		driver := postgres.New(cfg.PostgresDSN)
		if err := driver.Initialize(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("could not initialize the database connection")
		}
		defer driver.Close()
		sessions = driver
	default:
		driver, err := inmem.New()
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize the in-memory session storage")
		}
		sessions = driver
	}

	// Schedule a task that terminates expired sessions
	janitorTask := task.NewRepeating(func() {
		n, err := sessions.TerminateExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not terminate expired sessions")
		} else if n > 0 {
			log.Info().Int("amount", n).Msg("terminated expired sessions")
		}
	}, time.Minute)
	janitorTask.Start()
	defer janitorTask.Stop(true)

	// Start up the console API
	log.Info().Str("console_api", cfg.ListenAddress).Msg("starting up the console API...")
	apis := &api.Service{
		Config:   cfg,
		Sessions: sessions,
	}
	apiErrs := make(chan error, 1)
	apis.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the console API...")
		apis.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}
