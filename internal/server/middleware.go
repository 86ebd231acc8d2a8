package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Divelog/internal/store"
	"Divelog/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionUserKey = "username"
	ctxUserKey     = "user"
	ctxRequestID   = "requestID"
)

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)

		c.Next()

		attrs := []any{
			slog.String("request_id", id),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if u, ok := c.Get(ctxUserKey); ok {
			attrs = append(attrs, slog.String("user", u.(*models.User).Username))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// requireLogin loads the session user from the store on every request, so a
// changed role applies at once and removed accounts lose access.
func (s *Server) requireLogin(c *gin.Context) {
	session := sessions.Default(c)
	username, _ := session.Get(sessionUserKey).(string)

	if username != "" {
		user, err := s.store.UserByUsername(c.Request.Context(), username)
		switch {
		case err == nil:
			c.Set(ctxUserKey, &user)
			c.Next()
			return
		case errors.Is(err, store.ErrNotFound):
			session.Clear()
			_ = session.Save()
		default:
			s.fail(c, err, "Failed to load user")
			return
		}
	}

	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if currentUser(c).IsAdmin() {
		c.Next()
		return
	}
	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
		return
	}
	c.HTML(http.StatusForbidden, "error.html", s.page(c, "Geen toegang", "", gin.H{
		"Message": "Alleen beheerders kunnen gebruikers beheren.",
	}))
	c.Abort()
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUserKey); ok {
		return v.(*models.User)
	}
	return &models.User{}
}

// fail logs err and answers with a 500 in the format of the route.
func (s *Server) fail(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
		return
	}
	c.HTML(http.StatusInternalServerError, "error.html", s.page(c, "Fout", "", gin.H{
		"Message": "Er ging iets mis bij het lezen of schrijven van de gegevens.",
	}))
	c.Abort()
}

// flash stores a message for the next page render. kind is success,
// warning or error.
func flash(c *gin.Context, kind, msg string) {
	session := sessions.Default(c)
	session.AddFlash(msg, kind)
	_ = session.Save()
}

var flashKinds = []string{"success", "warning", "error"}

// page assembles the data every template expects: the logged-in user,
// pending flashes, the title and the active menu entry.
func (s *Server) page(c *gin.Context, title, nav string, data gin.H) gin.H {
	session := sessions.Default(c)
	flashes := make(map[string][]string)
	taken := false
	for _, kind := range flashKinds {
		for _, f := range session.Flashes(kind) {
			if msg, ok := f.(string); ok {
				flashes[kind] = append(flashes[kind], msg)
			}
			taken = true
		}
	}
	if taken {
		_ = session.Save()
	}

	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Nav"] = nav
	data["Flashes"] = flashes
	if u, ok := c.Get(ctxUserKey); ok {
		data["User"] = u
	}
	return data
}
