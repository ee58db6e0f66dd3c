package api

import (
	"mime"
	"net/http"

	"github.com/tweetbinder/report-analyzer/internal/logger"
)

// validateContentType middleware ensures POST/PUT/PATCH requests that carry a
// body declare it as application/json. Bodiless requests pass through.
func validateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		hasBody := r.ContentLength != 0 || len(r.TransferEncoding) > 0
		if hasBody && (method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch) {
			log := logger.Ctx(r.Context())
			contentType := r.Header.Get("Content-Type")

			if contentType == "" {
				log.Info("Request missing Content-Type header", "method", method, "path", r.URL.Path)
				respondError(w, http.StatusUnsupportedMediaType, "Content-Type header required")
				return
			}

			// "application/json; charset=utf-8" → "application/json"
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil || mediaType != "application/json" {
				log.Info("Request with invalid Content-Type", "method", method, "path", r.URL.Path, "content_type", contentType)
				respondError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
