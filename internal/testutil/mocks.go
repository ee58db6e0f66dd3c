package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ChatCompletionsPath is the endpoint served by NewChatServer.
const ChatCompletionsPath = "/v1/chat/completions"

// ChatMessage is one message of a recorded chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a recorded chat-completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatReplyFunc decides the mock model's answer. A status >= 400 is sent as an
// OpenAI-style error body carrying content as the message.
type ChatReplyFunc func(req ChatRequest) (content string, status int)

// ChatServer is a mock OpenAI-compatible chat-completions endpoint.
type ChatServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []ChatRequest
	headers  []http.Header
}

// NewChatServer starts a mock chat-completions server closed on test cleanup.
func NewChatServer(t *testing.T, reply ChatReplyFunc) *ChatServer {
	t.Helper()

	cs := &ChatServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ChatCompletionsPath {
			http.NotFound(w, r)
			return
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"message": "invalid request body", "type": "invalid_request_error"},
			})
			return
		}

		cs.mu.Lock()
		cs.requests = append(cs.requests, req)
		cs.headers = append(cs.headers, r.Header.Clone())
		cs.mu.Unlock()

		content, status := reply(req)
		if status >= 400 {
			writeJSON(w, status, map[string]any{
				"error": map[string]any{"message": content, "type": "server_error"},
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{
				"prompt_tokens":     100,
				"completion_tokens": 50,
				"total_tokens":      150,
			},
		})
	}))
	t.Cleanup(cs.Close)
	return cs
}

// StaticReply answers every request with content.
func StaticReply(content string) ChatReplyFunc {
	return func(ChatRequest) (string, int) { return content, http.StatusOK }
}

// FailingReply answers every request with an error status.
func FailingReply(status int, message string) ChatReplyFunc {
	return func(ChatRequest) (string, int) { return message, status }
}

// Requests returns the requests received so far.
func (cs *ChatServer) Requests() []ChatRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]ChatRequest(nil), cs.requests...)
}

// Headers returns the headers of the requests received so far.
func (cs *ChatServer) Headers() []http.Header {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]http.Header(nil), cs.headers...)
}

// StatsServer serves stats documents at /{reportID}/stats.json.
type StatsServer struct {
	*httptest.Server

	mu      sync.Mutex
	reports map[string]string
	hits    int
}

// NewStatsServer starts a mock stats storage bucket holding reports keyed by
// report ID. Unknown reports get 403, as an S3 bucket without list rights does.
func NewStatsServer(t *testing.T, reports map[string]string) *StatsServer {
	t.Helper()

	ss := &StatsServer{reports: make(map[string]string, len(reports))}
	for id, body := range reports {
		ss.reports[id] = body
	}
	ss.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/stats.json")
		ss.mu.Lock()
		ss.hits++
		body, found := ss.reports[id]
		ss.mu.Unlock()

		if r.Method != http.MethodGet || !ok || !found {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ss.Close)
	return ss
}

// Put stores or replaces a report.
func (ss *StatsServer) Put(reportID, body string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.reports[reportID] = body
}

// Hits returns the number of requests served.
func (ss *StatsServer) Hits() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.hits
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
