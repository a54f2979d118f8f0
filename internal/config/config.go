package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Placeholder values used when required environment variables are missing.
// Startup must not crash on an incomplete environment; the affected
// backend calls will fail with clear errors instead.
const (
	placeholderAPIURL  = "http://localhost:3001"
	placeholderAuthURL = "https://project.supabase.co"
	placeholderAuthKey = "anon-key-nao-configurada"
)

// Config holds all configuration for both binaries.
type Config struct {
	// API is the REST backend consumed through the gateway.
	API APIConfig

	// Auth is the third-party auth/storage backend.
	Auth AuthConfig

	// OAuth configures the federated (Google) sign-in flow.
	OAuth OAuthConfig

	// Web configures the local web gateway binary.
	Web WebConfig

	// Logging configuration.
	Logging LoggingConfig
}

// APIConfig holds REST backend configuration.
type APIConfig struct {
	BaseURL string
}

// AuthConfig holds auth/storage backend configuration.
type AuthConfig struct {
	URL     string // project base URL, e.g. https://xyz.supabase.co
	AnonKey string // public API key sent as the apikey header
	Bucket  string // storage bucket for profile images
}

// OAuthConfig holds federated sign-in configuration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// WebConfig holds web gateway configuration.
type WebConfig struct {
	Addr         string // listen address
	UpstreamURL  string // frontend origin proxied behind the route guard
	CookieSecret string // HMAC secret for the web session cookie
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables. Missing required
// values degrade to placeholders with a warning rather than failing, so
// that unrelated surfaces keep working.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	apiURL := os.Getenv("EGUA_API_URL")
	if apiURL == "" {
		log.Warn().Str("fallback", placeholderAPIURL).Msg("EGUA_API_URL não definida")
		apiURL = placeholderAPIURL
	}

	authURL := os.Getenv("SUPABASE_URL")
	if authURL == "" {
		log.Warn().Str("fallback", placeholderAuthURL).Msg("SUPABASE_URL não definida")
		authURL = placeholderAuthURL
	}

	anonKey := os.Getenv("SUPABASE_ANON_KEY")
	if anonKey == "" {
		log.Warn().Msg("SUPABASE_ANON_KEY não definida - chamadas ao backend de auth vão falhar")
		anonKey = placeholderAuthKey
	}

	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		bucket = "avatars"
	}

	oauthClientID := os.Getenv("GOOGLE_CLIENT_ID")
	if oauthClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID não definida - login com Google desabilitado")
	}

	webAddr := os.Getenv("EGUA_WEB_ADDR")
	if webAddr == "" {
		webAddr = ":8080"
	}

	upstream := os.Getenv("EGUA_WEB_UPSTREAM")
	if upstream == "" {
		upstream = "http://localhost:5173"
	}

	cookieSecret := os.Getenv("EGUA_WEB_COOKIE_SECRET")

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		API: APIConfig{
			BaseURL: apiURL,
		},
		Auth: AuthConfig{
			URL:     authURL,
			AnonKey: anonKey,
			Bucket:  bucket,
		},
		OAuth: OAuthConfig{
			ClientID:     oauthClientID,
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		Web: WebConfig{
			Addr:         webAddr,
			UpstreamURL:  upstream,
			CookieSecret: cookieSecret,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
