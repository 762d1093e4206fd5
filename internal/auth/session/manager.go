package session

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/humesociety/humesociety-sub000/internal/config"
)

// DefaultCookieName carries the opaque member session token.
const DefaultCookieName = "hume_session"

// maxTokenLength bounds what ReadToken accepts; issued tokens are far shorter.
const maxTokenLength = 256

// Manager reads and writes the member session cookie. The cookie is scoped to
// the path the site is mounted under, so a society site served from a
// sub-path of a shared host does not leak its session to sibling apps.
type Manager struct {
	cookieName string
	path       string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	path, https := sitePath(cfg.SiteURL)
	return &Manager{
		cookieName: DefaultCookieName,
		path:       path,
		secure:     cfg.AuthCookieSecure || https,
	}
}

func sitePath(siteURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return "/", false
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = "/"
	}
	return path, strings.EqualFold(u.Scheme, "https")
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Secure() bool {
	return m.secure
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLength {
		return "", false
	}
	return token, true
}

// Set writes the session cookie so that it lapses with the stored session.
func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, m.path, "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, m.path, "", m.secure, true)
}
