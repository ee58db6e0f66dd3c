package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// ErrInvalidJSON indicates that fetched bytes are not a JSON value.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// StatsDocument is a raw statistics document as stored for one report.
// It is fetched fresh for every submission and never cached.
type StatsDocument struct {
	Raw json.RawMessage
}

// ParseStatsDocument wraps data after checking that it is well-formed JSON.
func ParseStatsDocument(data []byte) (*StatsDocument, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	return &StatsDocument{Raw: json.RawMessage(data)}, nil
}

// Size returns the document length in bytes.
func (d *StatsDocument) Size() int {
	return len(d.Raw)
}

// FilteredPayload is the reduced document sent to the model.
// Field order here is the serialization order.
type FilteredPayload struct {
	Stats FilteredStats `json:"stats"`

	canonical []byte
}

// FilteredStats holds the three required groups, copied verbatim.
type FilteredStats struct {
	General    json.RawMessage `json:"general"`
	Sentiment  json.RawMessage `json:"sentiment"`
	Influences Influences      `json:"influences"`
}

// Influences keeps only the three influence rankings. A ranking absent from
// the source document is omitted entirely; one present as null stays null.
type Influences struct {
	SentimentInfluence   json.RawMessage `json:"sentimentInfluence,omitempty"`
	ContributorInfluence json.RawMessage `json:"contributorInfluence,omitempty"`
	TweetValueInfluence  json.RawMessage `json:"tweetValueInfluence,omitempty"`
}

// Canonical returns the compact JSON text of the payload. This exact text is
// what the token budget is measured against.
func (p *FilteredPayload) Canonical() string {
	return string(p.canonical)
}

// Size is the length of the canonical text in characters. It counts runes,
// not UTF-16 code units, so an emoji is one character here where JavaScript's
// text.length counts two. Escapes kept from the source document, such as
// \u2028, count as their six written characters.
func (p *FilteredPayload) Size() int {
	return utf8.RuneCount(p.canonical)
}

// Indented returns the payload pretty-printed with two-space indentation,
// the form embedded in the analysis prompt.
func (p *FilteredPayload) Indented() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, p.canonical, "", "  "); err != nil {
		return p.Canonical()
	}
	return buf.String()
}

// Document returns the payload as a stats document, so it can be filtered again.
func (p *FilteredPayload) Document() *StatsDocument {
	raw := make([]byte, len(p.canonical))
	copy(raw, p.canonical)
	return &StatsDocument{Raw: raw}
}

func (p *FilteredPayload) encode() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return err
	}
	p.canonical = bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return nil
}
