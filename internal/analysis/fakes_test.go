package analysis

import (
	"context"
	"errors"
	"sync"

	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/report"
	"github.com/tweetbinder/report-analyzer/internal/storage"
)

const sampleDocument = `{
	"id": "abc123",
	"stats": {
		"general": {"tweets": 120, "impressions": 40000, "impact": 90000, "replies": 5, "receivedRetweets": 300},
		"sentiment": {"positive": 70, "neutral": 20, "negative": 10},
		"influences": {
			"sentimentInfluence": [{"user": "alice", "value": 0.8}],
			"contributorInfluence": [{"user": "bob", "tweets": 12}],
			"tweetValueInfluence": [{"user": "carol", "value": 150}],
			"hashtagInfluence": [{"tag": "#x"}]
		},
		"languages": {"es": 80, "en": 40}
	}
}`

// fakeCompleter records requests and replies with scripted responses.
type fakeCompleter struct {
	mu       sync.Mutex
	requests []*llm.ChatRequest
	replies  []string
	err      error
	empty    bool
}

func (f *fakeCompleter) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &llm.ChatResponse{}, nil
	}
	reply := "ok"
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: reply}}},
		Usage:   llm.Usage{PromptTokens: 1000, CompletionTokens: 200, TotalTokens: 1200},
	}, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCompleter) last() *llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// fakeFetcher serves documents by storage URL.
type fakeFetcher struct {
	mu   sync.Mutex
	docs map[string]string
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, storageURL string) (*report.StatsDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, storageURL)
	body, ok := f.docs[storageURL]
	if !ok {
		return nil, &storage.NetworkError{URL: storageURL, StatusCode: 404, Err: storage.ErrObjectNotFound}
	}
	doc, err := report.ParseStatsDocument([]byte(body))
	if err != nil {
		return nil, &storage.NetworkError{URL: storageURL, Err: err}
	}
	return doc, nil
}

var errUpstream = errors.New("upstream exploded")
