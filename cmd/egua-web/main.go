package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wallysom2/egua-cli/internal/authapi"
	"github.com/wallysom2/egua-cli/internal/config"
	"github.com/wallysom2/egua-cli/internal/logger"
	"github.com/wallysom2/egua-cli/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	auth := authapi.New(cfg.Auth.URL, cfg.Auth.AnonKey, log)

	// Federated sign-in stays disabled when no client id is configured.
	oauth, err := web.NewOAuth(context.Background(), cfg.OAuth)
	if err != nil {
		log.Warn().Err(err).Msg("login federado indisponível")
	}

	srv, err := web.New(cfg, auth, oauth, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web gateway")
	}

	log.Info().Str("addr", cfg.Web.Addr).Msg("Starting Egua web gateway...")

	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("Web gateway failed")
	}
}
