package render

import "time"

// ProgressInterval is how long each loading message stays on screen.
const ProgressInterval = 2 * time.Second

// LoadingMessages are shown in turn while an analysis is in flight.
var LoadingMessages = []string{
	"Connecting to Twitter/X API...",
	"Extracting engagement metrics...",
	"Analyzing interaction patterns...",
	"Processing sentiment data...",
	"Calculating performance KPIs...",
	"Evaluating social media impact...",
	"Generating audience insights...",
	"Comparing with benchmarks...",
	"Preparing personalized recommendations...",
	"Finalizing detailed analysis...",
}

// ProgressMessage returns the loading message for an analysis running for elapsed.
func ProgressMessage(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	i := int(elapsed/ProgressInterval) % len(LoadingMessages)
	return LoadingMessages[i]
}
