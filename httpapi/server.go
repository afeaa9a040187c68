// Package httpapi is the transport shell around the plan pipeline: routing,
// CORS, request ids, and the status table. It holds no pipeline logic.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"fitplan"
	"fitplan/pipeline"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Server routes plan requests to a pipeline handler.
type Server struct {
	handler pipeline.Handler
}

func NewServer(handler pipeline.Handler) *Server {
	return &Server{handler: handler}
}

// Router builds the full middleware chain: request ids, logging, permissive
// CORS, then routing.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handlePlan).Methods(http.MethodPost)
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(handleOptions)

	c := cors.New(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		OptionsSuccessStatus: http.StatusOK,
	})

	return requestIDMiddleware(loggingMiddleware(c.Handler(r)))
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeOutcome(w, http.StatusBadRequest, fitplan.Outcome{
			Status: fitplan.StatusRejected,
			Reason: "failed to read request body",
		})
		return
	}

	res := s.handler.Handle(r.Context(), body)
	writeOutcome(w, res.HTTPStatus, res.Outcome)
}

// handleOptions answers any OPTIONS request with 200 and an empty body. The
// CORS middleware has already attached the permissive headers.
func handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// requestIDMiddleware threads a fresh request id through the context so the
// pipeline's logs can correlate without closure-captured loggers.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(fitplan.WithRequestID(r.Context(), id)))
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		slog.Info("HTTP: Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"request_id", fitplan.RequestIDFrom(r.Context()),
		)
	})
}
