package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SchemaError is returned when a stats document lacks a required group.
type SchemaError struct {
	// Missing lists the absent or falsy paths, e.g. "stats.sentiment".
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) == 0 {
		return "invalid stats document format"
	}
	return fmt.Sprintf("invalid stats document format: missing %s", strings.Join(e.Missing, ", "))
}

var requiredGroups = []string{"general", "sentiment", "influences"}

// Filter keeps stats.general, stats.sentiment and the three influence rankings
// of doc, dropping everything else. A group counts as missing when it is
// absent, null, false, zero or the empty string. Filter is idempotent:
// filtering a payload's Document yields the same payload.
func Filter(doc *StatsDocument) (*FilteredPayload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc.Raw, &top); err != nil || top == nil {
		return nil, &SchemaError{Missing: []string{"stats"}}
	}

	statsRaw, ok := top["stats"]
	if !ok || !truthy(statsRaw) {
		return nil, &SchemaError{Missing: []string{"stats"}}
	}

	var stats map[string]json.RawMessage
	if err := json.Unmarshal(statsRaw, &stats); err != nil {
		// A scalar or array has no named groups.
		stats = nil
	}

	var missing []string
	for _, name := range requiredGroups {
		if raw, ok := stats[name]; !ok || !truthy(raw) {
			missing = append(missing, "stats."+name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	payload := &FilteredPayload{
		Stats: FilteredStats{
			General:    stats["general"],
			Sentiment:  stats["sentiment"],
			Influences: pickInfluences(stats["influences"]),
		},
	}
	if err := payload.encode(); err != nil {
		return nil, fmt.Errorf("failed to encode filtered payload: %w", err)
	}
	return payload, nil
}

func pickInfluences(raw json.RawMessage) Influences {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Influences{}
	}
	return Influences{
		SentimentInfluence:   fields["sentimentInfluence"],
		ContributorInfluence: fields["contributorInfluence"],
		TweetValueInfluence:  fields["tweetValueInfluence"],
	}
}

// truthy reports whether a JSON value would pass a presence check:
// null, false, 0 and "" fail, every object, array and other value passes.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return len(v) > 2
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err != nil || f != 0
	}
}
