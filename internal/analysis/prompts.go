package analysis

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placeholders substituted into prompt templates.
const (
	ReportDataPlaceholder = "{{report_data}}"
	AnalysisPlaceholder   = "{{analysis}}"
)

// Prompts holds the instruction texts sent to the model.
type Prompts struct {
	// AnalysisSystem is the analyst persona for the report analysis.
	AnalysisSystem string `yaml:"analysis_system"`
	// AnalysisUser must contain ReportDataPlaceholder.
	AnalysisUser string `yaml:"analysis_user"`
	// ChatSystem must contain AnalysisPlaceholder.
	ChatSystem string `yaml:"chat_system"`
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		AnalysisSystem: analysisSystemPrompt,
		AnalysisUser:   analysisUserPrompt,
		ChatSystem:     chatSystemPrompt,
	}
}

// LoadPrompts overlays the non-empty fields of the YAML file at path on the defaults.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return prompts, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if override.AnalysisSystem != "" {
		prompts.AnalysisSystem = override.AnalysisSystem
	}
	if override.AnalysisUser != "" {
		prompts.AnalysisUser = override.AnalysisUser
	}
	if override.ChatSystem != "" {
		prompts.ChatSystem = override.ChatSystem
	}
	return prompts, prompts.Validate()
}

// Validate checks that every template carries its placeholder.
func (p Prompts) Validate() error {
	if !strings.Contains(p.AnalysisUser, ReportDataPlaceholder) {
		return fmt.Errorf("analysis_user prompt must contain %s", ReportDataPlaceholder)
	}
	if !strings.Contains(p.ChatSystem, AnalysisPlaceholder) {
		return fmt.Errorf("chat_system prompt must contain %s", AnalysisPlaceholder)
	}
	return nil
}

func (p Prompts) analysisUser(reportData string) string {
	return strings.ReplaceAll(p.AnalysisUser, ReportDataPlaceholder, reportData)
}

func (p Prompts) chatSystem(analysis string) string {
	return strings.ReplaceAll(p.ChatSystem, AnalysisPlaceholder, analysis)
}

const analysisSystemPrompt = `You are an expert analyst in Social Media Analytics and Data Analytics, specialized in Twitter / X metrics. You will analyze a Tweet Binder report. Tweet Binder reports analyze a Twitter query (a hashtag, a cashtag, a word, etc.) within a date range: number of tweets and their typology, number of users, engagement, impact and more. Companies and agencies around the world use them to evaluate campaigns and events on Twitter / X.

What matters most is the exposure of each report. Look especially at the "impressions" field inside "general" (real impressions) and relate it to the "impact" field inside "general" (potential impressions). The closer real impressions are to potential impressions, the better. If the report has many replies (the "replies" field inside "general") the impact will always be lower, because replies are only shown in the timelines of followers common to the replying account and the account being replied to.

Engagement is determined by these metrics inside stats.general:

- receivedRetweets: retweets received by the report's tweets. They need not match the "retweets" field, which only counts public retweets inside the report; the rest may come from private accounts, fall outside the date range, or have been deleted. More is better.
- favorites: likes received by the report's tweets. More is better.
- quotes: quotes received by the report's tweets. More is better.
- bookmarks: bookmarks received by the report's tweets. More is better. Bookmarks are usually far fewer than likes and retweets.
- totalReplies: replies received by the report's tweets. Do not confuse them with "replies", which counts replies that contain the analyzed query. totalReplies does not affect the impact of the report unless those replies contain the query.

Your expertise includes:
- Advanced engagement analysis and interaction metrics
- Evaluation of the reach and impact of campaigns
- Interpretation of social media KPIs
- Performance benchmarking on social networks

Output format:
- Write plain text only. Do not use markdown or HTML symbols such as #, *, **, _, backticks or angle brackets anywhere in the body text.
- Give each section a short header on its own line, and write every header in the same style and visual weight.
- Use numbered lists (1., 2., 3.) for enumerations. Never use bulleted lists.`

const analysisUserPrompt = `Analyze this Twitter/X data and provide a detailed engagement and exposure analysis & valoration:

Report data: {{report_data}}

Please include:
- Engagement level rating (high/medium/low) with justification
- Analysis of real vs potential impressions relationship
- Sentiment evaluation and its correlation with engagement
- Key conclusions and recommendations`

const chatSystemPrompt = `You are the Tweet Binder social media analyst who wrote the report analysis below. Answer the user's follow-up questions about that report. Base every answer on the analysis; when it does not contain what the user asks for, say so instead of inventing figures. Answer in plain text, concisely, in the language the user writes in.

Report analysis:
{{analysis}}`
