package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"filippo.io/csrf"
	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/session"
)

// MaxRequestBodySize caps JSON request bodies (after decompression).
const MaxRequestBodySize = 1 << 20 // 1 MiB

// Server holds dependencies for API handlers
type Server struct {
	sessions       *session.Store
	service        *session.Service
	version        string
	allowedOrigins []string
}

// NewServer creates a new API server. allowedOrigins lists browser origins
// permitted by CORS and cross-origin protection; nil allows same-origin only.
func NewServer(sessions *session.Store, service *session.Service, version string, allowedOrigins []string) *Server {
	return &Server{
		sessions:       sessions,
		service:        service,
		version:        version,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Content-Encoding", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	r.Use(newCompressor().Handler)

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.crossOriginProtection())
		r.Use(validateContentType)
		r.Use(decompressMiddleware())
		r.Use(debugLoggingMiddleware())

		r.Post("/sessions", HandleCreateSession(s.sessions))

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Use(sessionContext(s.sessions))

			r.Get("/", HandleGetSession())
			r.Delete("/", HandleDeleteSession(s.sessions))
			r.Post("/analyze", withMaxBody(MaxRequestBodySize, HandleAnalyze(s.service)))
			r.Post("/chat", withMaxBody(MaxRequestBodySize, HandleChat(s.service)))
			r.Get("/analysis", HandleGetAnalysisText())
			r.Get("/print", HandlePrint())
		})
	})

	return r
}

// newCompressor compresses text responses with brotli when the client accepts
// it, otherwise gzip or deflate.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(5, "application/json", "text/html", "text/plain")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// crossOriginProtection rejects state-changing requests from cross-site
// browser contexts unless their origin is allowed.
func (s *Server) crossOriginProtection() func(http.Handler) http.Handler {
	protection := csrf.New()
	for _, origin := range s.allowedOrigins {
		if origin == "*" {
			continue
		}
		if err := protection.AddTrustedOrigin(origin); err != nil {
			logger.Warn("ignoring invalid trusted origin", "origin", origin, "error", err)
		}
	}
	return protection.Handler
}

// withMaxBody limits the request body to n bytes.
func withMaxBody(n int64, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		next(w, r)
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "tb-analyzer",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
