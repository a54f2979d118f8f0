package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/wallysom2/egua-cli/internal/authapi"
	"github.com/wallysom2/egua-cli/internal/config"
)

const (
	stateCookie    = "egua_oauth_state"
	verifierCookie = "egua_oauth_verifier"
)

// Server is the local web gateway: it proxies the hosted frontend,
// guards navigation and completes the federated sign-in flow.
type Server struct {
	router  *gin.Engine
	cfg     *config.Config
	auth    *authapi.Client
	cookies *SessionCookie
	oauth   *OAuth
	guard   *Guard
	log     zerolog.Logger
}

// New wires the web gateway. The OAuth flow may be nil (disabled).
func New(cfg *config.Config, auth *authapi.Client, oauth *OAuth, log zerolog.Logger) (*Server, error) {
	cookies, err := NewSessionCookie(cfg.Web.CookieSecret)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		auth:    auth,
		cookies: cookies,
		oauth:   oauth,
		guard:   NewGuard(auth, cookies, log),
		log:     log.With().Str("component", "web").Logger(),
	}

	if err := s.setupRouter(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.cfg.Web.UpstreamURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.Use(s.guard.Middleware())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/auth/google", s.startFederatedSignIn)
	s.router.GET("/auth/callback", s.finishFederatedSignIn)
	s.router.GET("/auth/logout", s.logout)

	// Everything else is the hosted frontend.
	upstream, err := url.Parse(s.cfg.Web.UpstreamURL)
	if err != nil {
		return err
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	s.router.NoRoute(gin.WrapH(proxy))

	return nil
}

// startFederatedSignIn redirects the browser to the external consent
// screen. State and PKCE verifier travel in short-lived cookies.
func (s *Server) startFederatedSignIn(c *gin.Context) {
	if s.oauth == nil {
		c.Redirect(http.StatusFound, "/login?error=auth")
		return
	}

	state := ulid.Make().String()
	verifier := s.oauth.NewVerifier()

	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.SetCookie(verifierCookie, verifier, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state, verifier))
}

// finishFederatedSignIn exchanges the authorization code for a backend
// session and redirects to the authenticated home. Any failure clears a
// possibly stale session and lands on the sign-in page with an error
// flag.
func (s *Server) finishFederatedSignIn(c *gin.Context) {
	fail := func(reason string, err error) {
		s.log.Warn().Err(err).Str("reason", reason).Msg("callback de login federado falhou")
		s.clearSessionCookie(c)
		c.Redirect(http.StatusFound, "/login?error=auth")
	}

	if s.oauth == nil {
		fail("disabled", nil)
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		fail("provider_error", errors.New(errParam))
		return
	}

	expectedState, err := c.Cookie(stateCookie)
	if err != nil || expectedState == "" || c.Query("state") != expectedState {
		fail("state_mismatch", err)
		return
	}
	verifier, err := c.Cookie(verifierCookie)
	if err != nil || verifier == "" {
		fail("missing_verifier", err)
		return
	}

	idToken, err := s.oauth.Exchange(c.Request.Context(), c.Query("code"), verifier)
	if err != nil {
		fail("exchange", err)
		return
	}

	sess, err := s.auth.ExchangeIDToken(c.Request.Context(), "google", idToken)
	if err != nil {
		fail("backend_exchange", err)
		return
	}

	value, err := s.cookies.Mint(sess.AccessToken)
	if err != nil {
		fail("cookie", err)
		return
	}

	c.SetCookie(stateCookie, "", -1, "/", "", false, true)
	c.SetCookie(verifierCookie, "", -1, "/", "", false, true)
	c.SetCookie(CookieName, value, int(cookieTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/dashboard")
}

// logout revokes the backend session and clears the cookie.
func (s *Server) logout(c *gin.Context) {
	if value, err := c.Cookie(CookieName); err == nil {
		if token, err := s.cookies.Parse(value); err == nil {
			if err := s.auth.SignOut(c.Request.Context(), token); err != nil {
				s.log.Warn().Err(err).Msg("falha ao revogar sessão no backend")
			}
		}
	}
	s.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Handler exposes the router (tests).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:    s.cfg.Web.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.log.Info().Str("signal", sig.String()).Msg("encerrando servidor web")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
