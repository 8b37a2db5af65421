package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"site-cms/pkg/config"
	"site-cms/pkg/logger"
	"site-cms/pkg/services"
)

const (
	adminPath      = "/admin"
	adminLoginPath = "/admin/login"
	callbackPath   = "/auth/callback"
	oauthStateKey  = "oauth_state"

	githubEmailsURL = "https://api.github.com/user/emails"
)

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// AuthHandler signs users in with a password or GitHub and guards routes
// that need a user.
type AuthHandler struct {
	auth      *services.Auth
	oauth     *oauth2.Config
	site      *SiteHandler
	log       logger.Logger
	emailsURL string
}

// NewAuthHandler builds the handler. oauth may be nil, which disables the
// GitHub sign-in.
func NewAuthHandler(auth *services.Auth, oauth *oauth2.Config, site *SiteHandler, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthHandler{auth: auth, oauth: oauth, site: site, log: log, emailsURL: githubEmailsURL}
}

// LoadUser resolves the request token, if any, into the current user.
func (h *AuthHandler) LoadUser(c *gin.Context) {
	if token := services.TokenFromRequest(c.Request); token != "" {
		user, err := h.auth.Me(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(userKey, user)
		case !errors.Is(err, services.ErrUnauthorized):
			h.log.Warn("resolve token failed", logger.Error(err))
		}
	}
	c.Next()
}

// AuthRequired rejects anonymous requests: API calls get a 403, pages are
// sent to the sign-in form.
func (h *AuthHandler) AuthRequired(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Next()
		return
	}
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		apiError(c, http.StatusForbidden, "You are not allowed to perform this action.")
		return
	}
	c.Redirect(http.StatusFound, adminLoginPath)
	c.Abort()
}

// Admin is the signed-in landing page. Anonymous visitors go to the
// sign-in form.
func (h *AuthHandler) Admin(c *gin.Context) {
	if CurrentUser(c) == nil {
		c.Redirect(http.StatusFound, adminLoginPath)
		return
	}
	v := h.site.view(c)
	v.Meta = h.site.seo.Static("Dashboard | "+h.site.seo.SiteName(), "")
	c.HTML(http.StatusOK, "admin.html", v)
}

// LoginPage shows the sign-in form, or sends signed-in users on to the
// dashboard.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, adminPath)
		return
	}
	h.renderLogin(c, http.StatusOK, "", "")
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, email, message string) {
	v := h.site.view(c)
	v.Meta = h.site.seo.Static("Login | "+h.site.seo.SiteName(), "")
	v.GitHub = h.oauth != nil
	v.Error = message
	v.Form = map[string]string{"email": email}
	c.HTML(status, "admin-login.html", v)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderLogin(c, http.StatusBadRequest, req.Email, "Email and password are required.")
		return
	}
	token, _, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.renderLogin(c, http.StatusUnauthorized, req.Email, "The email or password provided is incorrect.")
		return
	}
	if err != nil {
		h.site.fail(c, err)
		return
	}
	setTokenCookie(c, token)
	c.Redirect(http.StatusSeeOther, adminPath)
}

func (h *AuthHandler) GithubLogin(c *gin.Context) {
	if h.oauth == nil {
		h.site.NotFound(c)
		return
	}
	state, err := randomState()
	if err != nil {
		h.site.fail(c, err)
		return
	}
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		h.site.fail(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.oauthConfig(c).AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// oauthConfig sends GitHub back to the origin the browser used when no
// callback URL is configured.
func (h *AuthHandler) oauthConfig(c *gin.Context) *oauth2.Config {
	if h.oauth.RedirectURL != "" {
		return h.oauth
	}
	cfg := *h.oauth
	cfg.RedirectURL = config.ClientSideURL(c.Request) + callbackPath
	return &cfg
}

// AuthCallback completes the GitHub flow. The account's verified primary
// email must belong to an existing user.
func (h *AuthHandler) AuthCallback(c *gin.Context) {
	if h.oauth == nil {
		h.site.NotFound(c)
		return
	}
	session := sessions.Default(c)
	want, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	_ = session.Save()
	if want == "" || c.Query("state") != want {
		c.String(http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	ctx := c.Request.Context()
	oauth := h.oauthConfig(c)
	token, err := oauth.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.log.Warn("oauth exchange failed", logger.Error(err))
		c.String(http.StatusInternalServerError, "OAuth Exchange Failed")
		return
	}

	email, err := h.primaryEmail(ctx, oauth.Client(ctx, token))
	if err != nil {
		h.log.Warn("fetch github email failed", logger.Error(err))
		c.String(http.StatusBadGateway, "Could not read your GitHub email address")
		return
	}

	signed, _, err := h.auth.LoginWithEmail(ctx, email)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.renderLogin(c, http.StatusForbidden, email, "No account exists for "+email+".")
		return
	}
	if err != nil {
		h.site.fail(c, err)
		return
	}
	setTokenCookie(c, signed)
	c.Redirect(http.StatusFound, adminPath)
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (h *AuthHandler) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.emailsURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails: status %d", resp.StatusCode)
	}

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("decode github emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", errors.New("no verified primary email")
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	clearTokenCookie(c)
	c.Redirect(http.StatusFound, adminLoginPath)
}

// APILogin is POST /api/users/login.
func (h *AuthHandler) APILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "Email and password are required.")
		return
	}
	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apiFailure(c, err)
		return
	}
	setTokenCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Auth Passed",
		"user":    user,
		"token":   token,
		"exp":     time.Now().Add(services.TokenTTL).Unix(),
	})
}

// APILogout is POST /api/users/logout.
func (h *AuthHandler) APILogout(c *gin.Context) {
	clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "You have been logged out successfully."})
}

// APIMe is GET /api/users/me. Anonymous callers get a null user.
func (h *AuthHandler) APIMe(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": services.TokenFromRequest(c.Request)})
}
