package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"youdub/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recent runs, or the videos of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer led.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				videos, err := led.Videos(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(videos) == 0 {
					fmt.Fprintf(out, "No videos recorded for run %s\n", args[0])
					return nil
				}
				fmt.Fprintln(out, renderVideos(videos, shouldColorize(out)))
				return nil
			}

			runs, err := led.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	return cmd
}

func renderRuns(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := "running"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			finished,
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			truncate(strings.Join(r.URLs, " "), 50),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Took", "OK", "Fail", "Skip", "URLs"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func renderVideos(videos []ledger.Video, colorize bool) string {
	lines := make([]string, 0, len(videos))
	for _, v := range videos {
		message := fmt.Sprintf("%s (%d attempts, %s)", v.Outcome, v.Attempts, v.Duration.Round(time.Second))
		if v.Error != "" {
			message += ": " + truncate(v.Error, 80)
		}
		label := v.Title
		if label == "" {
			label = v.VideoID
		}
		lines = append(lines, renderStatusLine(truncate(label, statusLabelWidth), outcomeKind(v.Outcome), message, colorize))
	}
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
