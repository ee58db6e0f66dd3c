package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
)

var version string

var rootCmd = &cobra.Command{
	Use:   "tb-analyzer",
	Short: "AI analysis of Tweet Binder reports",
	Long: `tb-analyzer fetches the statistics behind a Tweet Binder report, asks a
language model for an engagement and exposure analysis, and answers follow-up
questions about it.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	if version == "" {
		version = "dev"
	}
	rootCmd.Version = version
	rootCmd.AddCommand(newServeCmd(), newAnalyzeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, analysis.StatusMessage(err))
		os.Exit(1)
	}
}
