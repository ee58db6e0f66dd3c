package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/render"
	"github.com/tweetbinder/report-analyzer/internal/session"
)

type sessionContextKey struct{}

// sessionContext loads the session named by {sessionId} into the request
// context, answering 404 for unknown or malformed IDs.
func sessionContext(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "sessionId"))
			if err != nil {
				respondError(w, http.StatusNotFound, session.ErrNotFound.Error())
				return
			}
			sess, err := store.Get(id)
			if err != nil {
				respondError(w, http.StatusNotFound, err.Error())
				return
			}

			annotateSpan(r.Context(), sess)
			ctx := logger.With(r.Context(), "session_id", sess.ID.String())
			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess
}

// SessionResponse is the session view returned to the browser.
type SessionResponse struct {
	session.View
	Progress string         `json:"progress,omitempty"`
	Blocks   []render.Block `json:"blocks"`
}

func newSessionResponse(v session.View) SessionResponse {
	resp := SessionResponse{View: v, Blocks: render.Blocks(v.Analysis)}
	if v.Analyzing {
		resp.Progress = render.ProgressMessage(time.Since(v.AnalysisStartedAt))
	}
	if resp.Blocks == nil {
		resp.Blocks = []render.Block{}
	}
	return resp
}

// CreateSessionResponse is the response for creating a session
type CreateSessionResponse struct {
	ID uuid.UUID `json:"id"`
}

// HandleCreateSession starts a new, empty session.
func HandleCreateSession(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := store.Create()
		logger.Ctx(r.Context()).Info("session created", "session_id", sess.ID.String())
		respondJSON(w, http.StatusCreated, CreateSessionResponse{ID: sess.ID})
	}
}

// HandleGetSession returns the session view, including the loading message
// while an analysis is in flight.
func HandleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, newSessionResponse(sessionFrom(r.Context()).Snapshot()))
	}
}

// HandleDeleteSession discards a session and everything in it.
func HandleDeleteSession(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Delete(sessionFrom(r.Context()).ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// AnalyzeRequest is the request body for submitting a report
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse is the response for a successful submission
type AnalyzeResponse struct {
	Status        string         `json:"status"`
	ReportURL     string         `json:"report_url"`
	StorageURL    string         `json:"storage_url"`
	Analysis      string         `json:"analysis"`
	Blocks        []render.Block `json:"blocks"`
	TokenEstimate int            `json:"token_estimate"`
	Model         string         `json:"model"`
	CostUSD       string         `json:"cost_usd"`
}

// HandleAnalyze runs the submission pipeline for a report URL. Every pipeline
// failure is answered with {"error": "Error: <message>"}.
func HandleAnalyze(service *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.Ctx(ctx)
		sess := sessionFrom(ctx)

		var req AnalyzeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		outcome, err := service.Analyze(ctx, sess, req.URL)
		if err != nil {
			status := analyzeErrorStatus(err)
			if status >= http.StatusInternalServerError {
				log.Error("analysis failed", "error", err, "kind", analysis.Classify(err))
			} else {
				log.Info("analysis rejected", "error", err, "kind", analysis.Classify(err))
			}
			if errors.Is(err, session.ErrAnalysisInProgress) {
				respondError(w, status, err.Error())
				return
			}
			respondError(w, status, analysis.StatusMessage(err))
			return
		}

		respondJSON(w, http.StatusOK, AnalyzeResponse{
			Status:        analysis.SuccessStatus,
			ReportURL:     outcome.ReportURL,
			StorageURL:    outcome.StorageURL,
			Analysis:      outcome.Result.Text,
			Blocks:        render.Blocks(outcome.Result.Text),
			TokenEstimate: outcome.TokenEstimate,
			Model:         outcome.Result.Model,
			CostUSD:       outcome.Result.CostUSD.StringFixed(6),
		})
	}
}

// analyzeErrorStatus maps a submission failure onto an HTTP status.
func analyzeErrorStatus(err error) int {
	if errors.Is(err, session.ErrAnalysisInProgress) {
		return http.StatusConflict
	}
	switch analysis.Classify(err) {
	case analysis.KindInput:
		return http.StatusBadRequest
	case analysis.KindSchema, analysis.KindTokenLimit:
		return http.StatusUnprocessableEntity
	case analysis.KindNetwork, analysis.KindModel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ChatRequest is the request body for a chat turn
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the assistant reply and the whole transcript
type ChatResponse struct {
	Reply      string              `json:"reply"`
	Transcript analysis.Transcript `json:"transcript"`
}

// HandleChat sends one follow-up question about the current analysis.
func HandleChat(service *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := sessionFrom(ctx)

		var req ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}

		reply, transcript, err := service.Chat(ctx, sess, req.Message)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrEmptyMessage):
				respondError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, session.ErrNoAnalysis), errors.Is(err, session.ErrChatInProgress):
				respondError(w, http.StatusConflict, err.Error())
			default:
				logger.Ctx(ctx).Error("chat failed", "error", err)
				respondError(w, http.StatusInternalServerError, "Failed to process chat message")
			}
			return
		}

		respondJSON(w, http.StatusOK, ChatResponse{Reply: reply, Transcript: transcript})
	}
}

// HandleGetAnalysisText returns the current analysis as plain text for the clipboard.
func HandleGetAnalysisText() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := sessionFrom(r.Context()).Snapshot()
		if !v.HasAnalysis() {
			respondError(w, http.StatusNotFound, session.ErrNoAnalysis.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(render.ClipboardText(v.Analysis)))
	}
}

// HandlePrint returns a standalone printable HTML document of the analysis.
// ?format=markdown renders the analysis as Markdown.
func HandlePrint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := sessionFrom(r.Context()).Snapshot()
		if !v.HasAnalysis() {
			respondError(w, http.StatusNotFound, session.ErrNoAnalysis.Error())
			return
		}

		var buf bytes.Buffer
		err := render.PrintDocument(&buf, v.Analysis, render.PrintOptions{
			Markdown: r.URL.Query().Get("format") == "markdown",
		})
		if err != nil {
			logger.Ctx(r.Context()).Error("failed to render print document", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to render print document")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// decodeBody parses a JSON request body into v, answering 400 or 413 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
