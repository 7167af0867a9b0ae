// Package web serves a small read-only API over the imported schema plus a
// one-off address parse endpoint.
package web

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/order-importer/internal/address"
)

// Server represents the web server
type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a server over an open database connection.
func NewServer(addr string, db *sql.DB, parser address.Parser, logger *zap.Logger) *Server {
	s := &Server{logger: logger}

	h := &Handlers{DB: db, Parser: parser, Logger: logger}

	s.router = mux.NewRouter()
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/parse", h.Parse).Methods("POST")
	api.HandleFunc("/orders/{id}/addresses", h.OrderAddresses).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	s.router.Use(s.requestLogging)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", zap.Error(err))
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
