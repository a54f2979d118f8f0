package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wallysom2/egua-cli/internal/authapi"
	"github.com/wallysom2/egua-cli/internal/cli/credstore"
	"github.com/wallysom2/egua-cli/internal/cli/userconfig"
	"github.com/wallysom2/egua-cli/internal/config"
	"github.com/wallysom2/egua-cli/internal/gateway"
	"github.com/wallysom2/egua-cli/internal/logger"
	"github.com/wallysom2/egua-cli/internal/platform"
	"github.com/wallysom2/egua-cli/internal/session"
	"github.com/wallysom2/egua-cli/internal/storage"
)

// App bundles the wired client stack shared by all commands. The
// session store is the single process-wide session; everything that
// needs the credential reads it through the store.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Auth     *authapi.Client
	Session  *session.Store
	Gateway  *gateway.Gateway
	Platform *platform.Service
	Uploader *storage.Uploader
}

// NewApp loads configuration (environment plus optional egua.yaml
// overrides) and wires the stack.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	overrides, err := userconfig.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, overrides)

	log := logger.Init(cfg.Logging.Level, "console")

	auth := authapi.New(cfg.Auth.URL, cfg.Auth.AnonKey, log)
	store := session.New(auth, credstore.New(cfg.Auth.URL), log)
	api := gateway.New(cfg.API.BaseURL, store, store, log)

	return &App{
		Config:   cfg,
		Log:      log,
		Auth:     auth,
		Session:  store,
		Gateway:  api,
		Platform: platform.NewService(api),
		Uploader: storage.New(cfg.Auth.URL, cfg.Auth.AnonKey, cfg.Auth.Bucket, store, log),
	}, nil
}

func applyOverrides(cfg *config.Config, overrides *userconfig.UserConfig) {
	if overrides.APIURL != "" {
		cfg.API.BaseURL = overrides.APIURL
	}
	if overrides.AuthURL != "" {
		cfg.Auth.URL = overrides.AuthURL
	}
	if overrides.AuthAnonKey != "" {
		cfg.Auth.AnonKey = overrides.AuthAnonKey
	}
	if overrides.Bucket != "" {
		cfg.Auth.Bucket = overrides.Bucket
	}
}

// RequireSession resolves the persisted session and fails with a
// login hint when none exists.
func (a *App) RequireSession(ctx context.Context) error {
	a.Session.Bootstrap(ctx)
	if !a.Session.IsAuthenticated() {
		return fmt.Errorf("não autenticado. Execute 'egua login' primeiro")
	}
	return nil
}
