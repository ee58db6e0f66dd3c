// Package render turns analysis text into the shapes the presentation layer
// shows: structured blocks, a printable document and progress messages.
package render

import (
	"regexp"
	"strings"
)

// BlockKind is the display role of one analysis line.
type BlockKind string

const (
	Heading   BlockKind = "heading"
	ListItem  BlockKind = "list_item"
	Paragraph BlockKind = "paragraph"
)

// Block is one displayable line of an analysis.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

var (
	headingLine   = regexp.MustCompile(`^#|^\d+\.`)
	headingMarker = regexp.MustCompile(`^#|\d+\.\s*`)
)

// Blocks splits text into lines and classifies each one. A line starting with
// "#" or "<digits>." is a heading, with the first such marker removed; a line
// starting with "-" is a list item without the dash; any other non-blank line
// is a paragraph. Blank lines are dropped.
func Blocks(text string) []Block {
	var blocks []Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case headingLine.MatchString(line):
			blocks = append(blocks, Block{Kind: Heading, Text: removeFirst(headingMarker, line)})
		case strings.HasPrefix(line, "-"):
			blocks = append(blocks, Block{Kind: ListItem, Text: line[1:]})
		case strings.TrimSpace(line) != "":
			blocks = append(blocks, Block{Kind: Paragraph, Text: line})
		}
	}
	return blocks
}

func removeFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

// ClipboardText is the analysis exactly as produced, for copy to clipboard.
func ClipboardText(analysis string) string {
	return analysis
}
