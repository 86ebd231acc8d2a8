// Package server is the web front end of the logbook: login, dive
// registration, overview, settlement and administration pages plus a small
// JSON API, all on gin.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"Divelog/internal/logbook"
	"Divelog/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html static/*
var assets embed.FS

const sessionName = "divelog"

type Options struct {
	SessionSecret string
	DefaultFee    decimal.Decimal
	// SecureCookie marks the session cookie HTTPS-only.
	SecureCookie bool
}

type Server struct {
	store  store.Store
	logger *slog.Logger
	fee    decimal.Decimal
	now    func() time.Time
	router *gin.Engine
}

func New(st store.Store, opts Options, logger *slog.Logger) (*Server, error) {
	if opts.SessionSecret == "" {
		return nil, errors.New("session secret is empty")
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			return nil, fmt.Errorf("register validation: %w", err)
		}
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:  st,
		logger: logger,
		fee:    opts.DefaultFee,
		now:    time.Now,
	}

	cookies := cookie.NewStore([]byte(opts.SessionSecret))
	cookies.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((12 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), sessions.Sessions(sessionName, cookies))
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(static))

	router.GET("/login", s.loginPage)
	router.POST("/login", s.login)

	pages := router.Group("/", s.requireLogin)
	pages.POST("/logout", s.logout)
	pages.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/dives/new") })
	pages.GET("/dives/new", s.registerPage)
	pages.POST("/dives/new", s.registerDive)
	pages.GET("/overview", s.overviewPage)
	pages.GET("/overview/export", s.exportSelection)
	pages.GET("/overview/export/all", s.exportAll)
	pages.GET("/settlement", s.settlementPage)
	pages.GET("/settlement/export", s.exportSettlement)
	pages.GET("/admin", s.adminPage)
	pages.POST("/admin/divers", s.addDiver)
	pages.POST("/admin/sites", s.addSite)
	pages.POST("/admin/users", s.requireAdmin, s.createUser)
	pages.POST("/admin/users/password", s.requireAdmin, s.changePassword)

	api := router.Group("/api", s.requireLogin)
	api.GET("/divers", s.apiDivers)
	api.POST("/divers", s.apiAddDiver)
	api.GET("/sites", s.apiSites)
	api.POST("/sites", s.apiAddSite)
	api.GET("/dives", s.apiDives)
	api.POST("/dives", s.apiAddDive)
	api.GET("/settlement", s.apiSettlement)

	s.router = router
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) today() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02-01-2006")
	},
	"iso": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02-01-2006 15:04")
	},
	"euro": logbook.FormatEuro,
}
