// Package web serves rendered pages over HTTP: a chi router in front
// of the render driver, an output cache in front of the renderer,
// Prometheus metrics, OpenTelemetry spans per pass, and a WebSocket
// endpoint for live fragment updates.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isokit/isokit/pkg/live"
	"github.com/isokit/isokit/pkg/outputcache"
	"github.com/isokit/isokit/pkg/render"
	"github.com/isokit/isokit/pkg/ssr"
	"github.com/isokit/isokit/pkg/vdom"
)

// PageFunc builds the root elements for one request, in the order they
// appear on the page.
type PageFunc func(r *http.Request) []*vdom.VNode

// Config configures the page server.
type Config struct {
	// Cache, when set, short-circuits render passes for repeat requests.
	Cache outputcache.Store

	// TTL decides cache lifetimes per pass outcome. Ignored without Cache.
	TTL outputcache.TTLPolicy

	// Variant discriminates cache entries beyond the path (locale, auth
	// bucket). Nil means path-only keys.
	Variant func(r *http.Request) string

	// RenderTimeout bounds one whole pass, deferred resolution included.
	RenderTimeout time.Duration

	// Renderer defaults to a plain renderer.
	Renderer *render.Renderer

	// Registry receives the metric collectors. Defaults to the global
	// Prometheus registerer.
	Registry prometheus.Registerer

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Second
	}
	if c.Renderer == nil {
		c.Renderer = render.New(render.Config{})
	}
	if c.Registry == nil {
		c.Registry = prometheus.DefaultRegisterer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Server renders pages and streams live updates.
type Server struct {
	cfg     Config
	router  chi.Router
	metrics *Metrics
	logger  *slog.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*live.Session
}

// NewServer builds the router with logging, recovery, the metrics
// endpoint, and the live WebSocket endpoint already mounted.
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		metrics: NewMetrics(cfg.Registry),
		logger:  cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*live.Session),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	if gatherer, ok := cfg.Registry.(prometheus.Gatherer); ok {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	} else {
		s.router.Handle("/metrics", promhttp.Handler())
	}
	s.router.Get("/live", s.handleLive)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// HandlePage mounts a rendered page at pattern.
func (s *Server) HandlePage(pattern string, page PageFunc) {
	s.router.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.servePage(w, r, page)
	})
}

// Broadcast sends a frame to every connected live session. Dead
// sessions are dropped on write failure.
func (s *Server) Broadcast(f live.Frame) {
	s.mu.Lock()
	sessions := make([]*live.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Send(f); err != nil {
			s.dropSession(sess)
		}
	}
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, page PageFunc) {
	key := s.cacheKey(r)

	if s.cfg.Cache != nil {
		entry, err := s.cfg.Cache.Get(r.Context(), key)
		hit := err == nil
		s.metrics.ObserveCache(hit)
		if hit {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("X-Cache", "hit")
			w.Write([]byte(entry.HTML))
			return
		}
		if !errors.Is(err, outputcache.ErrMiss) {
			s.logger.Warn("cache lookup failed", "key", key, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RenderTimeout)
	defer cancel()
	ctx, finish := startRenderSpan(ctx, r.URL.Path)

	var stats ssr.Stats
	html, err := ssr.RenderManyToOutput(ctx, page(r),
		ssr.WithRenderer(s.cfg.Renderer),
		ssr.WithLogger(s.logger),
		ssr.WithStats(&stats),
		ssr.WithErrorReporter(func(err error) {
			s.logger.Warn("instance error", "path", r.URL.Path, "error", err)
		}),
	)
	finish(stats, err)
	s.metrics.ObservePass(stats, err)

	if err != nil {
		s.logger.Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	if s.cfg.Cache != nil {
		if ttl := s.cfg.TTL.For(stats); ttl > 0 {
			entry := outputcache.Entry{
				Key:       key,
				HTML:      html,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(ttl),
			}
			if err := s.cfg.Cache.Put(r.Context(), entry); err != nil {
				s.logger.Warn("cache put failed", "key", key, "error", err)
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (s *Server) cacheKey(r *http.Request) string {
	variant := ""
	if s.cfg.Variant != nil {
		variant = s.cfg.Variant(r)
	}
	return outputcache.Key(r.URL.Path, variant)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := live.NewSession(conn, live.SessionConfig{Logger: s.logger})
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.metrics.SessionOpened()

	go sess.PingLoop()
	sess.ReadLoop()

	s.dropSession(sess)
}

func (s *Server) dropSession(sess *live.Session) {
	s.mu.Lock()
	_, present := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.mu.Unlock()

	sess.Close()
	if present {
		s.metrics.SessionClosed()
	}
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
