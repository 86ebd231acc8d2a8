package server

import (
	"errors"
	"log/slog"
	"net/http"

	"Divelog/internal/auth"
	"Divelog/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const msgBadLogin = "Onjuiste gebruikersnaam of wachtwoord."

func (s *Server) loginPage(c *gin.Context) {
	if username, _ := sessions.Default(c).Get(sessionUserKey).(string); username != "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", s.page(c, "Inloggen", "", gin.H{"Username": ""}))
}

func (s *Server) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		s.loginFailed(c, form.Username)
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.UserByUsername(ctx, form.Username)
	if errors.Is(err, store.ErrNotFound) {
		s.loginFailed(c, form.Username)
		return
	}
	if err != nil {
		s.fail(c, err, "Failed to load user")
		return
	}
	if !auth.VerifyPassword(form.Password, user.Salt, user.PasswordHash) {
		s.loginFailed(c, form.Username)
		return
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if err := s.upgradeHash(c, user.Username, form.Password); err != nil {
			s.logger.Warn("failed to upgrade password hash", slog.String("username", user.Username), slog.Any("error", err))
		}
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.Username)
	session.AddFlash("Ingelogd als "+user.Name, "success")
	if err := session.Save(); err != nil {
		s.fail(c, err, "Failed to save session")
		return
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) loginFailed(c *gin.Context, username string) {
	s.logger.Warn("login failed", slog.String("username", username))
	c.HTML(http.StatusUnauthorized, "login.html", s.page(c, "Inloggen", "", gin.H{
		"Error":    msgBadLogin,
		"Username": username,
	}))
}

func (s *Server) upgradeHash(c *gin.Context, username, password string) error {
	salt, hash, err := auth.Credentials(password)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(c.Request.Context(), username, salt, hash)
}

func (s *Server) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()
	c.Redirect(http.StatusSeeOther, "/login")
}
