package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/middleware"
)

// CookieConfig describes the cookie that carries the access token for pages.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthPageHandler renders the sign-in and sign-up pages and manages the token cookie.
type AuthPageHandler struct {
	svc    Service
	cookie CookieConfig
	log    *slog.Logger
}

// NewPageHandler creates an AuthPageHandler. A nil logger falls back to slog.Default().
func NewPageHandler(svc Service, cookie CookieConfig, log *slog.Logger) *AuthPageHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthPageHandler{svc: svc, cookie: cookie, log: log}
}

// LoginPage renders the sign-in form.
// GET /login
func (h *AuthPageHandler) LoginPage(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "auth/login.html", "", gin.H{})
}

// Login signs the user in and redirects to the requested page.
// POST /login
func (h *AuthPageHandler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	resp, err := h.svc.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		h.renderForm(c, domain.HTTPStatusCode(err), "auth/login.html", domain.UserMessage(err), gin.H{"Email": email})
		return
	}
	h.setToken(c, resp)
	h.log.InfoContext(c.Request.Context(), "user signed in", slog.String("user_id", resp.UserID))
	c.Redirect(http.StatusSeeOther, safeNext(c.PostForm("next")))
}

// RegisterPage renders the sign-up form.
// GET /register
func (h *AuthPageHandler) RegisterPage(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "auth/register.html", "", gin.H{})
}

// Register creates an account, signs it in and redirects to the search page.
// POST /register
func (h *AuthPageHandler) Register(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	resp, err := h.svc.SignUp(c.Request.Context(), name, email, c.PostForm("password"))
	if err != nil {
		h.renderForm(c, domain.HTTPStatusCode(err), "auth/register.html", domain.UserMessage(err), gin.H{
			"Name":  name,
			"Email": email,
		})
		return
	}
	h.setToken(c, resp)
	h.log.InfoContext(c.Request.Context(), "user registered", slog.String("user_id", resp.UserID))
	c.Redirect(http.StatusSeeOther, "/search")
}

// Logout revokes the token and clears its cookie.
// POST /logout
func (h *AuthPageHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.Name); err == nil && token != "" {
		if err := h.svc.Logout(c.Request.Context(), token); err != nil {
			h.log.DebugContext(c.Request.Context(), "token not revoked", slog.Any("error", err))
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthPageHandler) setToken(c *gin.Context, resp *TokenResponse) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    resp.Token,
		Path:     "/",
		Expires:  time.Unix(resp.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthPageHandler) renderForm(c *gin.Context, status int, name, errMsg string, data gin.H) {
	data["Title"] = "Sign in"
	if name == "auth/register.html" {
		data["Title"] = "Create account"
	}
	data["Error"] = errMsg
	data["Next"] = safeNext(c.Query("next") + c.PostForm("next"))
	data["CSRFToken"] = middleware.GetCSRFToken(c)
	data["CurrentUser"] = middleware.CurrentUser(c)
	c.HTML(status, name, data)
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	u, err := url.Parse(next)
	if next == "" || err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(next, "//") {
		return "/search"
	}
	return u.RequestURI()
}
