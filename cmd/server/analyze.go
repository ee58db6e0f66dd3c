package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/render"
	"github.com/tweetbinder/report-analyzer/internal/session"
)

type analyzeOptions struct {
	chat      bool
	printPath string
	markdown  bool
	dryRun    bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <report-url>",
		Short: "Analyze one Tweet Binder report from the terminal",
		Long: `Fetches the report's statistics, checks them against the model's token
budget and prints the AI analysis. With --chat, follow-up questions are read
from stdin one per line until an empty line or EOF.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the analysis
			logger.SetOutput(cmd.ErrOrStderr())

			config := loadConfig(!opts.dryRun)
			a, err := newApp(cmd.Context(), config)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), a, args[0], opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.chat, "chat", false, "Ask follow-up questions about the analysis (reads stdin)")
	cmd.Flags().StringVar(&opts.printPath, "print", "", "Write a printable HTML document of the analysis to this file")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "Render the printable document as Markdown")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Fetch and filter the report and show the token estimate without calling the model")

	return cmd
}

func runAnalyze(ctx context.Context, a *app, reportURL string, opts analyzeOptions, in io.Reader, out, progress io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.dryRun {
		outcome, err := a.pipeline.Prepare(ctx, reportURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Storage URL: %s\n", outcome.StorageURL)
		fmt.Fprintf(out, "Payload: %s (%s characters)\n",
			humanize.Bytes(uint64(len(outcome.Payload.Canonical()))),
			humanize.Comma(int64(outcome.Payload.Size())))
		fmt.Fprintf(out, "Estimated tokens: %s of %s\n",
			humanize.Comma(int64(outcome.TokenEstimate)),
			humanize.Comma(budget.DefaultMaxTokens))
		fmt.Fprintln(out, outcome.Payload.Indented())
		return nil
	}

	sess := session.New()

	stop := showProgress(progress)
	outcome, err := a.service.Analyze(ctx, sess, reportURL)
	stop()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, analysis.StatusMessage(nil))
	fmt.Fprintf(out, "Estimated input tokens: %s | model %s | cost $%s\n\n",
		humanize.Comma(int64(outcome.TokenEstimate)),
		outcome.Result.Model,
		outcome.Result.CostUSD.StringFixed(4))
	writeBlocks(out, render.Blocks(outcome.Result.Text))

	if opts.printPath != "" {
		if err := writePrintDocument(opts.printPath, outcome.Result.Text, opts.markdown); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPrintable analysis written to %s\n", opts.printPath)
	}

	if opts.chat {
		return chatLoop(ctx, a.service, sess, in, out)
	}
	return nil
}

// showProgress prints the rotating loading message until the returned func is called.
func showProgress(w io.Writer) func() {
	if w == nil || w == io.Discard {
		return func() {}
	}
	start := time.Now()
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(render.ProgressInterval)
		defer ticker.Stop()
		fmt.Fprintln(w, render.ProgressMessage(0))
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprintln(w, render.ProgressMessage(time.Since(start)))
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func writeBlocks(w io.Writer, blocks []render.Block) {
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		switch b.Kind {
		case render.Heading:
			fmt.Fprintf(w, "\n%s\n%s\n", text, strings.Repeat("-", len([]rune(text))))
		case render.ListItem:
			fmt.Fprintf(w, "  • %s\n", text)
		default:
			fmt.Fprintln(w, text)
		}
	}
}

func writePrintDocument(path, text string, markdown bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create print document: %w", err)
	}
	if err := render.PrintDocument(f, text, render.PrintOptions{Markdown: markdown}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// chatLoop sends each stdin line as a follow-up question until an empty line or EOF.
func chatLoop(ctx context.Context, service *session.Service, sess *session.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "\nAsk about the analysis (empty line to quit).")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		reply, _, err := service.Chat(ctx, sess, line)
		if err != nil {
			fmt.Fprintln(out, analysis.StatusMessage(err))
			continue
		}
		fmt.Fprintf(out, "%s\n\n", reply)
	}
}
