// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/api/handlers"
	"github.com/autobrr/qremote/internal/config"
	"github.com/autobrr/qremote/internal/metrics"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/scheduler"
	"github.com/autobrr/qremote/internal/services/notifier"
)

//go:embed openapi.yaml
var openAPISpec []byte

// OpenAPISpec returns the embedded API description.
func OpenAPISpec() []byte { return openAPISpec }

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	settings    *models.SettingsStore
	directories *models.DirectoriesStore
	clientPool  handlers.ClientPool
	notifier    *notifier.Service
	scheduler   *scheduler.Scheduler
	metrics     *metrics.MetricsManager
}

type Dependencies struct {
	Config      *config.AppConfig
	Version     string
	Settings    *models.SettingsStore
	Directories *models.DirectoriesStore
	ClientPool  handlers.ClientPool
	Notifier    *notifier.Service
	Scheduler   *scheduler.Scheduler
	Metrics     *metrics.MetricsManager
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:      log.Logger.With().Str("module", "api").Logger(),
		config:      deps.Config,
		version:     deps.Version,
		settings:    deps.Settings,
		directories: deps.Directories,
		clientPool:  deps.ClientPool,
		notifier:    deps.Notifier,
		scheduler:   deps.Scheduler,
		metrics:     deps.Metrics,
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Str("base_url", s.config.Config.BaseURL).
		Msgf("Starting API server - Open: http://%s%sapi/servers", host, s.baseURL())

	handler, err := s.Handler()
	if err != nil {
		listener.Close()
		return fmt.Errorf("build API router: %w", err)
	}

	s.server.Handler = handler

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) baseURL() string {
	baseURL := s.config.Config.BaseURL
	if baseURL == "" {
		return "/"
	}
	return baseURL
}

func (s *Server) Handler() (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	healthHandler := handlers.NewHealthHandler(s.version)
	settingsHandler := handlers.NewSettingsHandler(s.settings)
	serversHandler := handlers.NewServersHandler(s.settings, s.directories, s.clientPool)
	torrentsHandler := handlers.NewTorrentsHandler(s.settings, s.clientPool, s.config.RequestTimeout())
	directoriesHandler := handlers.NewDirectoriesHandler(s.settings, s.directories)

	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(requestLogger(s.logger))
		r.Use(requireToken(s.config.Config.APIToken))

		r.Get("/settings", settingsHandler.Get)
		r.Patch("/settings", settingsHandler.Update)

		r.Route("/servers", func(r chi.Router) {
			r.Get("/", serversHandler.List)
			r.Post("/", serversHandler.Create)

			r.Route("/{serverID}", func(r chi.Router) {
				r.Put("/", serversHandler.Update)
				r.Delete("/", serversHandler.Delete)
				r.Post("/activate", serversHandler.Activate)
				r.Post("/test", serversHandler.Test)

				r.Route("/torrents", func(r chi.Router) {
					r.Get("/", torrentsHandler.List)
					r.Get("/{torrentID}/files", torrentsHandler.Files)
					r.Get("/{torrentID}/pieces", torrentsHandler.Pieces)
				})
			})
		})

		r.Route("/directories", func(r chi.Router) {
			r.Get("/", directoriesHandler.List)
			r.Post("/", directoriesHandler.Add)
			r.Delete("/", directoriesHandler.Remove)
		})

		if s.notifier != nil {
			notifierHandler := handlers.NewNotifierHandler(s.notifier, s.scheduler)
			r.Get("/notifier", notifierHandler.Status)
			r.Post("/notifier/run", notifierHandler.Run)
		}
	})

	apiRouter.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(openAPISpec)
	})

	baseURL := s.baseURL()

	r.Get(baseURL+"health", healthHandler.Get)
	if s.config.Config.MetricsEnabled && s.metrics != nil {
		r.Handle(baseURL+"metrics", s.metrics.Handler())
	}
	r.Mount(baseURL+"api", apiRouter)

	return r, nil
}
