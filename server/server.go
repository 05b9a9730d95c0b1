// Package server exposes an assembled bot over HTTP: a JSON chat API,
// the schema document, health and Prometheus metrics endpoints, an
// embedded single page UI, and an MCP tool surface for agent hosts.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/alt-coder/synthio/chatbot"
)

// Chatbot is the part of the assembled bot the server needs.
type Chatbot interface {
	AskDetailed(ctx context.Context, query string) (*chatbot.Result, error)
	SchemaContext() string
	Ping(ctx context.Context) error
}

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthio_chat_requests_total",
			Help: "Chat requests by outcome.",
		},
		[]string{"outcome"},
	)
	chatRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthio_chat_request_duration_seconds",
			Help:    "End to end chat request duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

func init() {
	prometheus.MustRegister(chatRequestsTotal, chatRequestDuration)
}

// Server routes HTTP traffic to an assembled bot.
type Server struct {
	bot    Chatbot
	router *mux.Router
	http   *http.Server
}

// New wires the routes and middleware around a bot. addr is the listen
// address, for example ":8080".
func New(bot Chatbot, addr string) *Server {
	s := &Server{
		bot:    bot,
		router: mux.NewRouter(),
	}
	s.routes()

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)

	s.http = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// The write timeout must outlast the per-question budget or
		// slow answers get cut off mid response.
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/api/schema", s.handleSchema).Methods(http.MethodGet)
	mountMCP(s.router, s.bot)
}

// Handler returns the fully routed handler, including CORS. Exposed so
// tests can drive the server without a listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the context is cancelled, then drains in-flight
// connections before returning.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.http.Addr).Info("http server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logrus.Info("http server shutting down")
	return s.http.Shutdown(shutdownCtx)
}
