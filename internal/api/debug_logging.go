package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/tweetbinder/report-analyzer/internal/logger"
)

// maxDebugBodySize is the maximum size of request/response bodies to log
const maxDebugBodySize = 10 * 1024 // 10KB

// debugLoggingMiddleware logs request and response bodies (report URLs, chat
// messages, analyses) when debug logging is enabled. It must run after
// decompressMiddleware so the decoded body is logged.
func debugLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.IsDebug() {
				next.ServeHTTP(w, r)
				return
			}
			log := logger.Ctx(r.Context())

			if r.Body != nil && r.ContentLength != 0 {
				// Only the logged prefix is buffered; the rest streams through
				head, _ := io.ReadAll(io.LimitReader(r.Body, maxDebugBodySize+1))
				r.Body = readCloser{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

				truncated := len(head) > maxDebugBodySize
				if truncated {
					head = head[:maxDebugBodySize]
				}
				log.Debug("request body",
					"method", r.Method,
					"path", r.URL.Path,
					"body", string(head),
					"truncated", truncated,
				)
			}

			ww := &responseCapture{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
				maxSize:        maxDebugBodySize,
				status:         http.StatusOK,
			}

			next.ServeHTTP(ww, r)

			log.Debug("response body",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"body", ww.body.String(),
				"truncated", ww.truncated,
			)
		})
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// responseCapture wraps http.ResponseWriter to capture the response body
type responseCapture struct {
	http.ResponseWriter
	body      *bytes.Buffer
	status    int
	maxSize   int
	truncated bool
}

func (w *responseCapture) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseCapture) Write(b []byte) (int, error) {
	if remaining := w.maxSize - w.body.Len(); remaining > 0 {
		if len(b) <= remaining {
			w.body.Write(b)
		} else {
			w.body.Write(b[:remaining])
			w.truncated = true
		}
	} else if len(b) > 0 {
		w.truncated = true
	}

	return w.ResponseWriter.Write(b)
}
