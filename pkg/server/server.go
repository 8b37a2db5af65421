// Package server wires the handlers into a gin engine and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"site-cms/pkg/handlers"
	"site-cms/pkg/logger"
	"site-cms/pkg/metrics"
	"site-cms/pkg/render"
	"site-cms/pkg/seo"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
)

const (
	sessionName     = "payload-session"
	shutdownTimeout = 10 * time.Second
	formRateWindow  = time.Minute
)

// Deps are the services the routes are built from.
type Deps struct {
	Store       store.Store
	Content     *services.Content
	Forms       *services.Forms
	Auth        *services.Auth
	Media       *services.MediaService
	Revalidator *services.Revalidator
	Renderer    *render.Renderer
	SEO         *seo.Generator
	Metrics     *metrics.Metrics
	OAuth       *oauth2.Config
	Log         logger.Logger

	Secret           string
	ServerURL        string
	ContactRateLimit int
}

// Server is the HTTP front of the site.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
	done   chan struct{}
	stop   sync.Once
}

func New(addr string, d Deps) *Server {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	s := &Server{log: d.Log, done: make(chan struct{})}
	s.router = s.routes(d)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.ServerURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sessions.Sessions(sessionName, cookie.NewStore([]byte(d.Secret))))
	r.SetHTMLTemplate(d.Renderer.Template())

	site := handlers.NewSiteHandler(d.Content, d.Forms, d.SEO, d.Log)
	auth := handlers.NewAuthHandler(d.Auth, d.OAuth, site, d.Log)
	api := handlers.NewAPIHandler(d.Store, d.Content, d.Revalidator, d.Media, d.Log)
	media := handlers.NewMediaHandler(d.Media, d.Log)

	r.StaticFS("/static", http.FS(render.Static()))
	r.GET("/healthz", func(c *gin.Context) {
		if err := d.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.Use(auth.LoadUser)

	// --- Site ---
	limit := handlers.RateLimiter(d.ContactRateLimit, formRateWindow, s.done)
	r.GET("/", site.Home)
	r.GET("/posts", site.Posts)
	r.GET("/posts/page/:pageNumber", site.PostsPage)
	r.GET("/posts/:slug", site.Post)
	r.GET("/contact", site.Contact)
	r.POST("/contact", limit, site.SubmitContact)
	r.POST("/newsletter", limit, site.SubmitNewsletter)
	r.POST("/theme", site.SetTheme)

	// --- Admin ---
	r.GET("/admin", auth.Admin)
	r.GET("/admin/login", auth.LoginPage)
	r.POST("/admin/login", auth.Login)
	r.GET("/admin/login/github", auth.GithubLogin)
	r.GET("/auth/callback", auth.AuthCallback)
	r.GET("/logout", auth.Logout)

	// --- API ---
	v1 := r.Group("/api")
	{
		v1.POST("/users/login", auth.APILogin)
		v1.POST("/users/logout", auth.APILogout)
		v1.GET("/users/me", auth.APIMe)

		v1.GET("/globals/:slug", api.GetGlobal)
		v1.POST("/globals/:slug", auth.AuthRequired, api.UpdateGlobal)

		v1.POST("/media", auth.AuthRequired, media.Upload)
		v1.GET("/media/file/:filename", media.Serve)

		v1.GET("/:collection", api.List)
		v1.GET("/:collection/:id", api.Get)
		v1.POST("/:collection", auth.AuthRequired, api.Create)
		v1.PATCH("/:collection/:id", auth.AuthRequired, api.Update)
		v1.DELETE("/:collection/:id", auth.AuthRequired, api.Delete)
	}

	r.NoRoute(site.Fallback)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server", logger.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}

// Close stops background work started by New without serving.
func (s *Server) Close() {
	s.stop.Do(func() { close(s.done) })
}
