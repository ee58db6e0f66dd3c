package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/llm"
)

func completedOutcome(text string) *analysis.Outcome {
	return &analysis.Outcome{
		StorageURL:    "https://s3.eu-west-1.amazonaws.com/stats.tweetbinder.com/abc/stats.json",
		TokenEstimate: 1234,
		Result:        &analysis.Result{Text: text},
	}
}

func withAnalysis(t *testing.T, text string) *Session {
	t.Helper()
	s := New()
	gen, err := s.BeginAnalysis("abc")
	if err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	s.CompleteAnalysis(gen, completedOutcome(text))
	return s
}

func TestAnalysisLifecycle(t *testing.T) {
	s := New()

	gen, err := s.BeginAnalysis("https://www.tweetbinder.com/report/abc")
	if err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	if v := s.Snapshot(); !v.Analyzing || v.HasAnalysis() {
		t.Errorf("unexpected view while analyzing: %+v", v)
	}

	if _, err := s.BeginAnalysis("again"); !errors.Is(err, ErrAnalysisInProgress) {
		t.Errorf("second BeginAnalysis = %v, want ErrAnalysisInProgress", err)
	}

	s.CompleteAnalysis(gen, completedOutcome("analysis text"))
	v := s.Snapshot()
	if v.Analyzing {
		t.Error("analyzing flag not released")
	}
	if v.Analysis != "analysis text" || v.TokenEstimate != 1234 {
		t.Errorf("unexpected view %+v", v)
	}
	if v.Status != analysis.SuccessStatus {
		t.Errorf("Status = %q", v.Status)
	}
}

func TestFailedAnalysisLeavesNoAnalysis(t *testing.T) {
	s := withAnalysis(t, "old analysis")

	gen, err := s.BeginAnalysis("bad")
	if err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	s.FailAnalysis(gen, &budget.TokenLimitError{Estimate: 9001, Limit: 8000})

	v := s.Snapshot()
	if v.Analyzing {
		t.Error("analyzing flag not released")
	}
	if v.HasAnalysis() {
		t.Error("previous analysis should have been cleared on submission")
	}
	if v.TokenEstimate != 9001 {
		t.Errorf("TokenEstimate = %d, want 9001", v.TokenEstimate)
	}
	if v.Status != "Error: "+(&budget.TokenLimitError{Estimate: 9001, Limit: 8000}).Error() {
		t.Errorf("Status = %q", v.Status)
	}
	if _, err := s.BeginChat("hello"); !errors.Is(err, ErrNoAnalysis) {
		t.Errorf("BeginChat = %v, want ErrNoAnalysis", err)
	}
}

func TestChatRequiresAnalysis(t *testing.T) {
	s := New()
	if _, err := s.BeginChat("hello"); !errors.Is(err, ErrNoAnalysis) {
		t.Errorf("BeginChat = %v, want ErrNoAnalysis", err)
	}
}

func TestChatLifecycle(t *testing.T) {
	s := withAnalysis(t, "the analysis")

	ticket, err := s.BeginChat("Is engagement high?")
	if err != nil {
		t.Fatalf("BeginChat: %v", err)
	}
	if ticket.Analysis != "the analysis" {
		t.Errorf("ticket analysis = %q", ticket.Analysis)
	}
	if len(ticket.History) != 1 || ticket.History[0].Role != llm.RoleUser {
		t.Errorf("ticket history = %+v", ticket.History)
	}

	v := s.Snapshot()
	if !v.Chatting || len(v.Transcript) != 1 {
		t.Errorf("user turn should be visible while pending: %+v", v)
	}

	if _, err := s.BeginChat("another"); !errors.Is(err, ErrChatInProgress) {
		t.Errorf("second BeginChat = %v, want ErrChatInProgress", err)
	}

	if !s.CompleteChat(ticket.Generation, "Yes.") {
		t.Error("reply should be kept")
	}
	v = s.Snapshot()
	if v.Chatting {
		t.Error("chatting flag not released")
	}
	if len(v.Transcript) != 2 || v.Transcript[1].Role != llm.RoleAssistant || v.Transcript[1].Content != "Yes." {
		t.Errorf("transcript = %+v", v.Transcript)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := withAnalysis(t, "a")
	for _, text := range []string{"", "   "} {
		if _, err := s.BeginChat(text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("BeginChat(%q) = %v, want ErrEmptyMessage", text, err)
		}
	}
}

func TestNewAnalysisResetsTranscript(t *testing.T) {
	s := withAnalysis(t, "first")
	ticket, _ := s.BeginChat("q1")
	s.CompleteChat(ticket.Generation, "a1")

	gen, err := s.BeginAnalysis("second report")
	if err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	if v := s.Snapshot(); len(v.Transcript) != 0 {
		t.Errorf("transcript should be cleared on new submission, got %+v", v.Transcript)
	}
	s.CompleteAnalysis(gen, completedOutcome("second"))
	if v := s.Snapshot(); v.Analysis != "second" {
		t.Errorf("Analysis = %q", v.Analysis)
	}
}

func TestOrphanedChatReplyIsDropped(t *testing.T) {
	s := withAnalysis(t, "first")

	ticket, err := s.BeginChat("question about first")
	if err != nil {
		t.Fatalf("BeginChat: %v", err)
	}

	// A new submission starts while the reply is still in flight.
	gen, err := s.BeginAnalysis("second")
	if err != nil {
		t.Fatalf("BeginAnalysis should be allowed while chatting: %v", err)
	}
	s.CompleteAnalysis(gen, completedOutcome("second"))

	if s.CompleteChat(ticket.Generation, "late reply") {
		t.Error("orphaned reply should be dropped")
	}
	v := s.Snapshot()
	if len(v.Transcript) != 0 {
		t.Errorf("transcript = %+v, want empty", v.Transcript)
	}
	if v.Chatting {
		t.Error("chatting flag should be released even when the reply is dropped")
	}
}

func TestStaleAnalysisCompletionIgnored(t *testing.T) {
	s := New()
	gen, _ := s.BeginAnalysis("a")
	s.FailAnalysis(gen, errors.New("boom"))
	gen2, _ := s.BeginAnalysis("b")

	s.CompleteAnalysis(gen, completedOutcome("stale"))
	if v := s.Snapshot(); v.HasAnalysis() || !v.Analyzing {
		t.Errorf("stale completion applied: %+v", v)
	}
	s.CompleteAnalysis(gen2, completedOutcome("fresh"))
	if v := s.Snapshot(); v.Analysis != "fresh" {
		t.Errorf("Analysis = %q", v.Analysis)
	}
}

func TestBusyFlagsUnderConcurrency(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.BeginAnalysis("r"); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if started != 1 {
		t.Errorf("%d analyses started concurrently, want exactly 1", started)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := withAnalysis(t, "a")
	ticket, _ := s.BeginChat("q")
	s.CompleteChat(ticket.Generation, "r")

	v := s.Snapshot()
	v.Transcript[0].Content = "mutated"
	if s.Snapshot().Transcript[0].Content != "q" {
		t.Error("mutating a snapshot changed the session")
	}
}
