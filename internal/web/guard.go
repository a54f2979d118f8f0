package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wallysom2/egua-cli/internal/authapi"
)

// Destinations the guard never inspects: static assets, the federated
// auth callback and health checks.
var allowPrefixes = []string{
	"/auth/",
	"/static/",
	"/assets/",
	"/favicon.ico",
	"/healthz",
}

// Destinations that require a signed-in identity.
var protectedPrefixes = []string{
	"/dashboard",
	"/conteudos",
	"/exercicios",
	"/turmas",
	"/perfil",
}

// Guard gates navigation before a page renders. The identity decision
// is always revalidated against the auth backend; a locally cached
// session is never trusted for it.
type Guard struct {
	auth    *authapi.Client
	cookies *SessionCookie
	log     zerolog.Logger
}

// NewGuard creates a route guard over the auth backend.
func NewGuard(auth *authapi.Client, cookies *SessionCookie, log zerolog.Logger) *Guard {
	return &Guard{
		auth:    auth,
		cookies: cookies,
		log:     log.With().Str("component", "guard").Logger(),
	}
}

// errBackendUnavailable marks identity checks that failed for reasons
// other than an invalid credential.
var errBackendUnavailable = errors.New("auth backend unavailable")

// Middleware intercepts every navigation except the allow-list.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if allowListed(path) {
			c.Next()
			return
		}

		protected := hasPrefix(path, protectedPrefixes)
		publicOnly := isPublicOnly(path)
		if !protected && !publicOnly {
			c.Next()
			return
		}

		user, err := g.resolveIdentity(c)
		if err != nil {
			// Availability of navigation wins over this check; the
			// gateway's 401 policy is the second line of defense. This
			// path is logged distinctly from normal allow/deny.
			g.log.Warn().Err(err).Str("path", path).
				Msg("guarda de rota em fail-open: backend de auth indisponível")
			c.Next()
			return
		}

		switch {
		case protected && user == nil:
			target := "/login?redirect=" + url.QueryEscape(path)
			c.Redirect(http.StatusFound, target)
			c.Abort()

		case publicOnly && user != nil:
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()

		default:
			c.Next()
		}
	}
}

// resolveIdentity returns the server-verified principal, nil when the
// request carries no valid credential, or errBackendUnavailable when
// the check itself could not run.
func (g *Guard) resolveIdentity(c *gin.Context) (*authapi.User, error) {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie == "" {
		return nil, nil
	}

	token, err := g.cookies.Parse(cookie)
	if err != nil {
		return nil, nil
	}

	user, err := g.auth.GetUser(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, authapi.ErrUnauthorized) {
			return nil, nil
		}
		return nil, errors.Join(errBackendUnavailable, err)
	}
	return user, nil
}

func allowListed(path string) bool {
	return hasPrefix(path, allowPrefixes)
}

func isPublicOnly(path string) bool {
	return path == "/" || strings.HasPrefix(path, "/login") || strings.HasPrefix(path, "/cadastro")
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
