// Package session holds per-user analysis and chat state for the duration of
// a visit. Nothing here is persisted.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/llm"
)

// Sentinel errors for session state transitions
var (
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	ErrChatInProgress     = errors.New("a chat reply is already in progress")
	ErrNoAnalysis         = errors.New("no analysis available: submit a report first")
	ErrEmptyMessage       = errors.New("message must not be empty")
	ErrNotFound           = errors.New("session not found")
)

// Session is one user's working state: the current analysis, its chat
// transcript and the two busy flags. All methods are safe for concurrent use.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu                sync.Mutex
	now               func() time.Time
	reportURL         string
	storageURL        string
	analysis          string
	tokenEstimate     int
	status            string
	transcript        analysis.Transcript
	analyzing         bool
	chatting          bool
	analysisStartedAt time.Time
	generation        uint64
	lastActive        time.Time
}

// New creates an empty session.
func New() *Session {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Session {
	t := now().UTC()
	return &Session{
		ID:         uuid.New(),
		CreatedAt:  t,
		now:        now,
		lastActive: t,
	}
}

// View is an immutable snapshot of a session.
type View struct {
	ID                uuid.UUID           `json:"id"`
	Status            string              `json:"status,omitempty"`
	ReportURL         string              `json:"report_url,omitempty"`
	StorageURL        string              `json:"storage_url,omitempty"`
	Analysis          string              `json:"analysis,omitempty"`
	TokenEstimate     int                 `json:"token_estimate,omitempty"`
	Transcript        analysis.Transcript `json:"transcript"`
	Analyzing         bool                `json:"analyzing"`
	Chatting          bool                `json:"chatting"`
	AnalysisStartedAt time.Time           `json:"-"`
	CreatedAt         time.Time           `json:"created_at"`
	LastActive        time.Time           `json:"last_active"`
}

// HasAnalysis reports whether a current analysis exists.
func (v View) HasAnalysis() bool {
	return v.Analysis != ""
}

// Snapshot returns the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make(analysis.Transcript, len(s.transcript))
	copy(transcript, s.transcript)
	return View{
		ID:                s.ID,
		Status:            s.status,
		ReportURL:         s.reportURL,
		StorageURL:        s.storageURL,
		Analysis:          s.analysis,
		TokenEstimate:     s.tokenEstimate,
		Transcript:        transcript,
		Analyzing:         s.analyzing,
		Chatting:          s.chatting,
		AnalysisStartedAt: s.analysisStartedAt,
		CreatedAt:         s.CreatedAt,
		LastActive:        s.lastActive,
	}
}

// BeginAnalysis marks a submission in flight. The previous analysis, its
// transcript and status are cleared; the returned generation identifies this
// submission. Fails with ErrAnalysisInProgress while another one is running.
func (s *Session) BeginAnalysis(reportURL string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analyzing {
		return 0, ErrAnalysisInProgress
	}
	s.touch()
	s.analyzing = true
	s.analysisStartedAt = s.lastActive
	s.generation++
	s.reportURL = reportURL
	s.storageURL = ""
	s.analysis = ""
	s.tokenEstimate = 0
	s.status = ""
	s.transcript = nil
	return s.generation, nil
}

// CompleteAnalysis stores outcome as the current analysis and releases the flag.
func (s *Session) CompleteAnalysis(generation uint64, outcome *analysis.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	if generation != s.generation {
		return
	}
	s.analyzing = false
	s.storageURL = outcome.StorageURL
	s.tokenEstimate = outcome.TokenEstimate
	if outcome.Result != nil {
		s.analysis = outcome.Result.Text
	}
	s.status = analysis.StatusMessage(nil)
}

// FailAnalysis records err as the status and releases the flag.
// The session is left without an analysis, so chat stays disabled.
func (s *Session) FailAnalysis(generation uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	if generation != s.generation {
		return
	}
	s.analyzing = false
	s.status = analysis.StatusMessage(err)

	var limitErr *budget.TokenLimitError
	if errors.As(err, &limitErr) {
		s.tokenEstimate = limitErr.Estimate
	}
}

// ChatTicket carries what an in-flight chat turn needs.
type ChatTicket struct {
	Generation uint64
	// History ends with the user turn just appended.
	History  analysis.Transcript
	Analysis string
}

// BeginChat appends the user turn immediately, so it is visible while the
// reply is pending, and marks a chat turn in flight.
func (s *Session) BeginChat(text string) (ChatTicket, error) {
	if strings.TrimSpace(text) == "" {
		return ChatTicket{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis == "" {
		return ChatTicket{}, ErrNoAnalysis
	}
	if s.chatting {
		return ChatTicket{}, ErrChatInProgress
	}
	s.touch()
	s.chatting = true
	s.transcript = s.transcript.Append(analysis.Turn{Role: llm.RoleUser, Content: text})

	history := make(analysis.Transcript, len(s.transcript))
	copy(history, s.transcript)
	return ChatTicket{
		Generation: s.generation,
		History:    history,
		Analysis:   s.analysis,
	}, nil
}

// CompleteChat appends reply as the assistant turn and releases the flag.
// A reply for a superseded analysis is dropped; the return value reports
// whether it was kept.
func (s *Session) CompleteChat(generation uint64, reply string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.chatting = false
	if generation != s.generation {
		return false
	}
	s.transcript = s.transcript.Append(analysis.Turn{Role: llm.RoleAssistant, Content: reply})
	return true
}

// Busy reports whether either flag is set.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing || s.chatting
}

// idleSince reports the last activity time.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch records activity without changing state.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
}

func (s *Session) touch() {
	s.lastActive = s.now().UTC()
}
