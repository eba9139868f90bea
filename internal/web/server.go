package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"work-journal/internal/model"
	"work-journal/internal/service"
	"work-journal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front-end of the journal.
type Server struct {
	engine  *gin.Engine
	journal *service.JournalService
	guard   *session.Guard
	store   Pinger
}

type tagOption struct {
	Value string
	Label string
}

func NewServer(journal *service.JournalService, guard *session.Guard, store Pinger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"tags": func() []tagOption {
			opts := make([]tagOption, 0, len(model.DisplayOrder))
			for _, tag := range []model.Tag{model.TagWork, model.TagLearning, model.TagInteresting} {
				opts = append(opts, tagOption{Value: string(tag), Label: tag.Label()})
			}
			return opts
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		engine:  gin.New(),
		journal: journal,
		guard:   guard,
		store:   store,
	}
	s.engine.SetHTMLTemplate(tmpl)
	s.engine.Use(gin.Logger(), gin.Recovery(), s.loadSession())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.POST("/", s.requireAdmin(), s.handleCreate)
	s.engine.GET("/entries/:id/edit", s.requireAdmin(), s.handleEdit)
	s.engine.POST("/entries/:id/edit", s.requireAdmin(), s.handleEditSubmit)
	s.engine.GET("/login", s.handleLoginPage)
	s.engine.POST("/login", s.handleLogin)
	s.engine.POST("/logout", s.handleLogout)
	s.engine.GET("/health", s.handleHealth)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] http listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return ctx.Err()
}
