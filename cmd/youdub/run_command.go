package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"youdub/internal/fleet"
	"youdub/internal/ledger"
	"youdub/internal/notifications"
	"youdub/internal/preflight"
	"youdub/internal/textutil"
	"youdub/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var numVideos, workers, retries int
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run <url>...",
		Short: "Dub every video behind the given URLs",
		Long: "Resolve each URL (a video, playlist or channel) into videos and run the\n" +
			"full pipeline on them with a bounded worker pool. URLs may be separated\n" +
			"by commas, full-width commas or whitespace.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("retries") {
				cfg.Fleet.MaxRetries = retries
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Fleet.MaxWorkers
			}
			if !cmd.Flags().Changed("num-videos") {
				numVideos = cfg.Fleet.NumVideos
			}

			if !skipPreflight {
				if err := preflight.FirstFailure(preflight.RunAll(cmd.Context(), cfg)); err != nil {
					return err
				}
			}

			a, err := ctx.loadApp()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer led.Close()

			f := fleet.New(cfg.Paths.RootFolder, a.resolver, a.pipeline(),
				fleet.WithWarmers(a.warmers()...),
				fleet.WithWorkers(workers),
				fleet.WithRecorder(led),
				fleet.WithNotifier(notifications.NewService(cfg)),
				fleet.WithLogger(a.logger),
				fleet.WithRunLogs(cfg.Paths.LogDir, cfg.Logging.Level),
			)
			summary, err := f.DoEverything(cmd.Context(), strings.Join(args, "\n"), numVideos)
			if err != nil {
				return err
			}
			writeResults(cmd.OutOrStdout(), summary.Results)
			fmt.Fprintln(cmd.OutOrStdout(), summary.String())
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d videos failed", summary.Failed, summary.Total())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&numVideos, "num-videos", "n", 5, "Maximum videos resolved per URL")
	cmd.Flags().IntVarP(&workers, "workers", "w", 3, "Videos processed concurrently")
	cmd.Flags().IntVar(&retries, "retries", workflow.DefaultMaxRetries, "Whole-pipeline attempts per video")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not check services and binaries before starting")
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <url>",
		Short: "Dub a single video in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.loadApp()
			if err != nil {
				return err
			}
			urls := textutil.SplitURLs(args[0])
			pipeline := a.pipeline()
			var results []workflow.Result
			for d := range a.resolver.Resolve(cmd.Context(), urls, 1) {
				results = append(results, pipeline.ProcessVideo(cmd.Context(), d))
			}
			if len(results) == 0 {
				return fmt.Errorf("no video resolved from %s", args[0])
			}
			writeResults(cmd.OutOrStdout(), results)
			for _, r := range results {
				if r.Outcome == workflow.OutcomeFailed {
					return r.Err
				}
			}
			return nil
		},
	}
}

// writeResults prints one table row per processed video.
func writeResults(out io.Writer, results []workflow.Result) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		rows = append(rows, []string{
			truncate(r.Title, 48),
			r.Outcome.String(),
			strconv.Itoa(r.Attempts),
			r.Duration.Round(time.Second).String(),
			truncate(detail, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Title", "Outcome", "Attempts", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
