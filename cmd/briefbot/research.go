package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/pipeline"
	"github.com/briefbot/briefbot/internal/providers"
	"github.com/briefbot/briefbot/internal/timeframe"
)

func newResearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research <topic>",
		Short: "Research a topic and print the ranked brief",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runResearch,
	}
	cmd.Flags().Int("days", 7, "Look back this many days (ignored when --from is set)")
	cmd.Flags().String("from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().String("mode", "auto", "Channels: auto|all|reddit|x|youtube|linkedin|web|both|reddit-web|x-web")
	cmd.Flags().String("sampling", "standard", "Sampling tier: lite|standard|dense")
	cmd.Flags().Bool("refresh", false, "Bypass the response cache")
	cmd.Flags().Bool("exclude-undated", false, "Drop items without a resolvable date")
	cmd.Flags().Bool("mock", false, "Serve provider responses from fixtures")
	cmd.Flags().Bool("json", false, "Emit the brief as JSON")
	cmd.Flags().String("out", "", "Also write the JSON brief to this file")
	return cmd
}

func runResearch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}

	topic := strings.Join(args, " ")
	span, err := resolveSpan(cmd)
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")
	sampling, _ := cmd.Flags().GetString("sampling")
	refresh, _ := cmd.Flags().GetBool("refresh")
	excludeUndated, _ := cmd.Flags().GetBool("exclude-undated")
	mock, _ := cmd.Flags().GetBool("mock")
	asJSON, _ := cmd.Flags().GetBool("json")
	outPath, _ := cmd.Flags().GetString("out")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := newTerminalSink(os.Stderr, asJSON)
	orch := a.orchestrator(sink)
	b, err := orch.Run(ctx, pipeline.Request{
		Topic:          topic,
		Mode:           mode,
		Span:           span,
		Sampling:       providers.Tier(sampling),
		Mock:           mock,
		Refresh:        refresh,
		ExcludeUndated: excludeUndated,
	})
	if err != nil {
		return err
	}

	if outPath != "" {
		raw, _ := json.MarshalIndent(b, "", "  ")
		if err := os.WriteFile(outPath, raw, 0o644); err != nil {
			return fmt.Errorf("write brief: %w", err)
		}
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	renderBrief(os.Stdout, b)
	return nil
}

func resolveSpan(cmd *cobra.Command) (brief.Span, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	days, _ := cmd.Flags().GetInt("days")

	if from == "" && to == "" {
		start, end := timeframe.Span(days)
		return brief.Span{Start: start, End: end}, nil
	}
	if from == "" || to == "" {
		return brief.Span{}, fmt.Errorf("--from and --to must be set together")
	}
	return brief.Span{Start: from, End: to}, nil
}

func renderBrief(w *os.File, b *brief.Brief) {
	fmt.Fprintf(w, "\n%s  (%s to %s, mode %s)\n", b.Topic, b.Span.Start, b.Span.End, b.Mode)
	if b.Cache.Enabled {
		fmt.Fprintf(w, "served from cache (%.1fh old)\n", b.Cache.AgeHours)
	}
	fmt.Fprintf(w, "intent: %s / %s\n", b.Intent.ComplexityClass, b.Intent.EpistemicStance)
	if len(b.Intent.Decomposition) > 0 {
		fmt.Fprintln(w, "subquestions:")
		for _, q := range b.Intent.Decomposition {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}

	for _, ch := range brief.Channels() {
		items := b.ByChannel(ch)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n== %s (%d) ==\n", strings.ToUpper(string(ch)), len(items))
		for _, item := range items {
			fmt.Fprintf(w, "[%3d] %s  %s\n", item.Rank, item.Key, item.Headline)
			fmt.Fprintf(w, "      %s", item.URL)
			if item.Dated != "" {
				fmt.Fprintf(w, "  (%s %s)", item.Dated, item.TimeConfidence)
			}
			fmt.Fprintln(w)
			for _, note := range item.ThreadNotes {
				fmt.Fprintf(w, "      > [%d] %s: %s\n", note.Score, note.Author, note.Excerpt)
			}
		}
	}

	if len(b.Errors) > 0 {
		fmt.Fprintln(w, "\nchannel errors:")
		for ch, msg := range b.Errors {
			fmt.Fprintf(w, "  %s: %s\n", ch, msg)
		}
	}
	fmt.Fprintf(w, "\n%d items in %.1fs (run %s)\n", b.Metrics.ItemCount, b.Metrics.SearchSeconds, b.Metrics.RunID)
}
