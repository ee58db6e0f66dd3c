package analysis

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/report"
	"github.com/tweetbinder/report-analyzer/internal/storage"
)

// Outcome is the product of one submission.
type Outcome struct {
	ReportURL     string
	StorageURL    string
	Payload       *report.FilteredPayload
	TokenEstimate int
	// Result is nil after Prepare and set after Run.
	Result *Result
}

// Pipeline runs resolve, fetch, filter, budget and analyze in that order.
// A failing stage stops the run; the model is never called unless the
// payload passed both the filter and the budget.
type Pipeline struct {
	resolver *report.Resolver
	fetcher  storage.Fetcher
	guard    *budget.Guard
	analyzer *Analyzer
}

// NewPipeline wires the pipeline stages.
func NewPipeline(resolver *report.Resolver, fetcher storage.Fetcher, guard *budget.Guard, analyzer *Analyzer) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		fetcher:  fetcher,
		guard:    guard,
		analyzer: analyzer,
	}
}

// Prepare runs every stage except the model call.
func (p *Pipeline) Prepare(ctx context.Context, reportURL string) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "analysis.prepare",
		trace.WithAttributes(attribute.String("report.id", report.ReportID(reportURL))))
	defer span.End()

	fail := func(err error) (*Outcome, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Ctx(ctx).Warn("report preparation failed",
			"report_url", reportURL,
			"kind", string(Classify(err)),
			"error", err)
		return nil, err
	}

	if err := report.ValidateReference(reportURL); err != nil {
		return fail(err)
	}

	storageURL := p.resolver.Resolve(reportURL)
	span.SetAttributes(attribute.String("storage.url", storageURL))

	doc, err := p.fetcher.Fetch(ctx, storageURL)
	if err != nil {
		return fail(err)
	}

	payload, err := report.Filter(doc)
	if err != nil {
		return fail(err)
	}

	estimate, err := p.guard.CheckChars(payload.Size())
	span.SetAttributes(
		attribute.Int("payload.chars", payload.Size()),
		attribute.Int("payload.token_estimate", estimate),
	)
	if err != nil {
		return fail(err)
	}

	logger.Ctx(ctx).Info("report prepared",
		"storage_url", storageURL,
		"document_bytes", doc.Size(),
		"payload_chars", payload.Size(),
		"token_estimate", estimate)

	return &Outcome{
		ReportURL:     reportURL,
		StorageURL:    storageURL,
		Payload:       payload,
		TokenEstimate: estimate,
	}, nil
}

// Run prepares the report and analyzes it.
func (p *Pipeline) Run(ctx context.Context, reportURL string) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "analysis.run")
	defer span.End()

	outcome, err := p.Prepare(ctx, reportURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := p.analyzer.Analyze(ctx, outcome.Payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Ctx(ctx).Error("report analysis failed", "report_url", reportURL, "error", err)
		return nil, err
	}

	outcome.Result = result
	return outcome, nil
}
