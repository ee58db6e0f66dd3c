package session

import (
	"context"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/report"
)

// Service runs submissions and chat turns against a session, enforcing the busy flags.
type Service struct {
	pipeline *analysis.Pipeline
	chatter  *analysis.Chatter
}

// NewService creates a service.
func NewService(pipeline *analysis.Pipeline, chatter *analysis.Chatter) *Service {
	return &Service{
		pipeline: pipeline,
		chatter:  chatter,
	}
}

// Analyze runs the pipeline for reportURL and records the outcome in sess.
// Empty references are rejected without touching the session.
// Once started, the run is not cancelled by ctx; it completes and updates the
// session even if the caller has gone away.
func (s *Service) Analyze(ctx context.Context, sess *Session, reportURL string) (*analysis.Outcome, error) {
	// An empty submission never reaches the session
	if err := report.ValidateReference(reportURL); err != nil {
		return nil, err
	}

	generation, err := sess.BeginAnalysis(reportURL)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	outcome, err := s.pipeline.Run(ctx, reportURL)
	if err != nil {
		sess.FailAnalysis(generation, err)
		return nil, err
	}

	sess.CompleteAnalysis(generation, outcome)
	return outcome, nil
}

// Chat sends text as the next user turn and returns the reply and the
// resulting transcript. Model failures surface as the fallback reply, not as
// an error; errors only come from the session state checks.
func (s *Service) Chat(ctx context.Context, sess *Session, text string) (string, analysis.Transcript, error) {
	ticket, err := sess.BeginChat(text)
	if err != nil {
		return "", nil, err
	}

	ctx = context.WithoutCancel(ctx)
	reply := s.chatter.Reply(ctx, ticket.History, ticket.Analysis)
	if !sess.CompleteChat(ticket.Generation, reply) {
		logger.Ctx(ctx).Info("dropped chat reply for superseded analysis")
	}
	return reply, sess.Snapshot().Transcript, nil
}
