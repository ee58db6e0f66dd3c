package api

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tweetbinder/report-analyzer/internal/session"
)

// annotateSpan enriches the current request span with session metadata.
func annotateSpan(ctx context.Context, sess *session.Session) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	v := sess.Snapshot()
	span.SetAttributes(
		attribute.String("session.id", sess.ID.String()),
		attribute.Bool("session.analyzing", v.Analyzing),
		attribute.Bool("session.chatting", v.Chatting),
		attribute.Bool("session.has_analysis", v.HasAnalysis()),
		attribute.Int("session.turns", len(v.Transcript)),
	)
}
