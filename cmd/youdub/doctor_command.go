package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"youdub/internal/deps"
	"youdub/internal/language"
	"youdub/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var withStages bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Report dependency and service readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines,
				renderStatusLine("Config", statusInfo, ctx.configPath, colorize),
				renderStatusLine("Target language", statusInfo, language.DisplayName(cfg.Translation.TargetLanguage), colorize),
				renderStatusLine("Upload", statusInfo, yesNo(cfg.Upload.Enabled), colorize),
			)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			rows := [][]string{}
			for _, dep := range deps.CheckBinaries(cmd.Context(), nil, preflight.SystemRequirements(cfg)) {
				state := "ok"
				if !dep.Available {
					state = "missing"
					if dep.Optional {
						state = "optional"
					} else {
						failed = true
					}
				}
				detail := dep.Version
				if detail == "" {
					detail = dep.Detail
				}
				rows = append(rows, []string{dep.Name, dep.Command, state, truncate(detail, 60)})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "State", "Version"}, rows, nil))

			lines = renderSectionHeader("Services", colorize)
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					failed = true
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if withStages {
				a, err := ctx.loadApp()
				if err != nil {
					return err
				}
				lines = renderSectionHeader("Stages", colorize)
				for _, h := range a.pipeline().Health(cmd.Context()) {
					kind := statusOK
					if !h.Ready {
						kind = statusError
						failed = true
					}
					lines = append(lines, renderStatusLine(h.Name, kind, h.Detail, colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			}

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withStages, "stages", false, "Also load each model and run stage health checks")
	return cmd
}
