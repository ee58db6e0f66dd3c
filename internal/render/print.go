package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

// PrintTitle and PrintHeading label the printable document.
const (
	PrintTitle   = "Tweet Binder Analysis"
	PrintHeading = "Engagement and Exposure Analysis"
)

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
      body { font-family: Arial, sans-serif; padding: 20px; line-height: 1.6; }
      h1 { color: #00A2F3; }
      .date { color: #666; font-size: 0.9em; margin-top: 20px; }
    </style>
  </head>
  <body>
    <h1>{{.Heading}}</h1>
{{- if .Body}}
    {{.Body}}
{{- else}}
{{- range .Lines}}
    <p>{{.}}</p>
{{- end}}
{{- end}}
    <div class="date">Generated on {{.GeneratedOn}}</div>
  </body>
</html>
`))

type printData struct {
	Title       string
	Heading     string
	Lines       []string
	Body        template.HTML
	GeneratedOn string
}

// PrintOptions controls PrintDocument.
type PrintOptions struct {
	// Markdown renders the analysis as Markdown instead of one paragraph per line.
	Markdown bool
	// GeneratedAt is stamped at the bottom; zero means now.
	GeneratedAt time.Time
}

// PrintDocument writes a standalone HTML page of analysis suitable for printing.
// Analysis text is always escaped; in Markdown mode raw HTML is not passed through.
func PrintDocument(w io.Writer, analysis string, opts PrintOptions) error {
	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	data := printData{
		Title:       PrintTitle,
		Heading:     PrintHeading,
		GeneratedOn: generatedAt.Format("January 2, 2006"),
	}

	if opts.Markdown {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(analysis), &buf); err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		data.Body = template.HTML(buf.String())
	} else {
		data.Lines = strings.Split(analysis, "\n")
	}

	if err := printTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render print document: %w", err)
	}
	return nil
}
