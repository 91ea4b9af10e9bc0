// Package api provides HTTP handlers and the main API server logic for
// ConsultFlow.
//
// It exposes RESTful endpoints for opening consultations, exchanging turns,
// referral-letter intake, clinician search, reports, and service health.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SomnoHealth/ConsultFlow/internal/flow"
	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/referral"
	"github.com/SomnoHealth/ConsultFlow/internal/report"
	"github.com/SomnoHealth/ConsultFlow/internal/store"
)

const (
	// ServiceName identifies this service in health responses.
	ServiceName = "ConsultFlow"
	// ServiceVersion is reported by the health endpoint.
	ServiceVersion = "1.2.0"
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"
)

// Opts holds configuration for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server carries the wired modules behind the HTTP handlers.
type Server struct {
	store     store.Store
	sessions  *flow.SessionStore
	extractor *referral.Extractor
	reports   *report.Generator
	startTime time.Time
}

// NewServer creates a server over already-constructed modules.
func NewServer(st store.Store, sessions *flow.SessionStore, extractor *referral.Extractor, reports *report.Generator) *Server {
	return &Server{
		store:     st,
		sessions:  sessions,
		extractor: extractor,
		reports:   reports,
		startTime: time.Now(),
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/consultations", s.startHandler)
		r.Post("/chat", s.chatHandler)
		r.Post("/referral-letters", s.referralHandler)
		r.Get("/consultations", s.searchHandler)
		r.Get("/consultations/{id}", s.detailsHandler)
		r.Get("/consultations/{id}/report", s.reportHandler)
		r.Get("/statistics", s.statisticsHandler)
		r.Get("/health", s.healthHandler)
	})
	return r
}

// Run wires the store, reasoning gateway, and HTTP server together and
// blocks serving requests.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := store.NewStore(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	gateway, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoning gateway: %w", err)
	}

	engine := flow.NewConsultationEngine(gateway)
	srv := NewServer(st, flow.NewSessionStore(st, engine), referral.NewExtractor(gateway), report.NewGenerator())

	slog.Info("ConsultFlow API running", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, srv.Handler())
}
