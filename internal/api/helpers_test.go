package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/report"
	"github.com/tweetbinder/report-analyzer/internal/session"
	"github.com/tweetbinder/report-analyzer/internal/storage"
	"github.com/tweetbinder/report-analyzer/internal/testutil"
)

const (
	validReport   = `{"stats":{"general":{"impressions":40000,"impact":90000},"sentiment":{"positive":70},"influences":{"sentimentInfluence":[{"user":"alice"}]}},"languages":{"es":1}}`
	schemaReport  = `{"stats":{"general":{"impressions":1}}}`
	analysisText  = "# Engagement Level\n- High retweet volume\nReach is strong."
	chatReplyText = "Replies are low because the campaign was broadcast-only."
)

// hugeReport exceeds the token budget by a wide margin.
var hugeReport = fmt.Sprintf(`{"stats":{"general":{"note":%q},"sentiment":{"positive":1},"influences":{}}}`,
	strings.Repeat("x", budget.DefaultMaxTokens*budget.CharsPerToken))

type testStack struct {
	handler  http.Handler
	store    *session.Store
	stats    *testutil.StatsServer
	analysis *testutil.ChatServer
	chat     *testutil.ChatServer
}

// newTestStack wires the real pipeline against mock stats and model servers.
func newTestStack(t *testing.T, analysisReply, chatReply testutil.ChatReplyFunc, allowedOrigins ...string) *testStack {
	t.Helper()

	stats := testutil.NewStatsServer(t, map[string]string{
		"valid":  validReport,
		"schema": schemaReport,
		"huge":   hugeReport,
	})
	analysisModel := testutil.NewChatServer(t, analysisReply)
	chatModel := testutil.NewChatServer(t, chatReply)

	prompts := analysis.DefaultPrompts()
	pipeline := analysis.NewPipeline(
		report.NewResolver(stats.URL),
		storage.NewHTTPFetcher(),
		budget.NewGuard(0),
		analysis.NewAnalyzer(llm.NewClient("test-key", llm.WithBaseURL(analysisModel.URL)), analysis.ModelConfig{}, prompts),
	)
	chatter := analysis.NewChatter(llm.NewClient("test-key", llm.WithBaseURL(chatModel.URL)), analysis.ModelConfig{}, prompts)

	store := session.NewStore(0)
	t.Cleanup(store.Stop)

	server := NewServer(store, session.NewService(pipeline, chatter), "test", allowedOrigins)
	return &testStack{
		handler:  server.SetupRoutes(),
		store:    store,
		stats:    stats,
		analysis: analysisModel,
		chat:     chatModel,
	}
}

func (s *testStack) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.JSONRequest(t, method, path, body)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testStack) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp CreateSessionResponse
	testutil.ParseJSONResponse(t, w, &resp)
	return resp.ID.String()
}
