package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/syncify/syncify/backend/go-services/internal/config"
	"github.com/syncify/syncify/backend/go-services/internal/credentials"
	"github.com/syncify/syncify/backend/go-services/internal/spotify"
	"github.com/syncify/syncify/backend/go-services/pkg/logger"
	"github.com/syncify/syncify/backend/go-services/pkg/middleware"
)

const stateCookie = "syncify_oauth_state"

// AuthHandler drives the Spotify authorization-code flow and binds the
// resulting credential to the caller's session.
type AuthHandler struct {
	cfg      *config.Config
	accounts *spotify.AccountsClient
	creds    credentials.Repository
}

func NewAuthHandler(cfg *config.Config, accounts *spotify.AccountsClient, creds credentials.Repository) *AuthHandler {
	return &AuthHandler{cfg: cfg, accounts: accounts, creds: creds}
}

// Register routes at the root group
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/login", h.Login)
	rg.GET("/callback", h.Callback)
	rg.GET("/session-info", h.SessionInfo)
}

// Login redirects the browser to the accounts authorize endpoint. The state
// parameter is a short-lived signed token, mirrored in a cookie so the
// callback can ensure the flow started here.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := h.newStateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create state"})
		return
	}
	c.SetCookie(stateCookie, state, int(h.cfg.Session.StateTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, h.accounts.AuthorizeURL(h.cfg.Spotify.RedirectURI, state))
}

// Callback validates state, exchanges the authorization code and upserts the
// session's credential, then sends the browser back to the frontend.
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	cookieState, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != cookieState || h.verifyStateToken(state) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	// single-use: clear the state cookie regardless of outcome
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code missing"})
		return
	}
	tok, err := h.accounts.ExchangeCode(c.Request.Context(), code, h.cfg.Spotify.RedirectURI)
	if err != nil {
		logger.Errorf("authorization code exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Spotify auth failed"})
		return
	}
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	sid := middleware.SessionID(c)
	if err := h.creds.Upsert(c.Request.Context(), sid, tok.AccessToken, tok.RefreshToken, time.Duration(expiresIn)*time.Second); err != nil {
		logger.Errorf("failed to persist credential for session %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credentials"})
		return
	}
	c.Redirect(http.StatusFound, h.cfg.Frontend.Origin+"/auth-success")
}

// SessionInfo reports whether the caller's session holds a Spotify credential.
func (h *AuthHandler) SessionInfo(c *gin.Context) {
	cred, err := h.creds.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credential lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": cred != nil, "hasToken": cred != nil})
}

func (h *AuthHandler) newStateToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"nonce": uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(h.cfg.Session.StateTTL).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(h.cfg.Session.Secret))
}

func (h *AuthHandler) verifyStateToken(tok string) error {
	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(h.cfg.Session.Secret), nil
	})
	return err
}
