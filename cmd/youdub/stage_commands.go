package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"youdub/internal/stage"
)

type stageCommand struct {
	use   string
	short string
	// stages run in order over the folder tree.
	stages []string
}

var stageCommandSpecs = []stageCommand{
	{use: "download", short: "Fetch source videos described by info.json", stages: []string{"download"}},
	{use: "separate", short: "Extract audio and split vocals from instruments", stages: []string{"extract-audio", "separate"}},
	{use: "transcribe", short: "Transcribe separated vocals", stages: []string{"transcribe"}},
	{use: "translate", short: "Summarize and translate transcripts", stages: []string{"translate"}},
	{use: "speak", short: "Synthesize and place translated speech", stages: []string{"speak"}},
	{use: "mux", short: "Render the final dubbed video", stages: []string{"mux"}},
	{use: "info", short: "Write upload metadata and cover image", stages: []string{"info"}},
	{use: "upload", short: "Publish finished folders", stages: []string{"upload"}},
}

// newStageCommands exposes each stage as a command that walks a folder tree
// and runs wherever inputs are present and outputs are not.
func newStageCommands(ctx *commandContext) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(stageCommandSpecs))
	for _, spec := range stageCommandSpecs {
		cmds = append(cmds, newStageCommand(ctx, spec))
	}
	return cmds
}

func newStageCommand(ctx *commandContext, spec stageCommand) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.loadApp()
			if err != nil {
				return err
			}
			root := strings.TrimSpace(folder)
			if root == "" {
				root = a.cfg.Paths.RootFolder
			}
			out := cmd.OutOrStdout()
			var errs []error
			for _, name := range spec.stages {
				s, ok := a.stage(name)
				if !ok {
					return fmt.Errorf("unknown stage %q", name)
				}
				report, err := stage.Walk(cmd.Context(), root, s, a.logger)
				if releaser, ok := s.(stage.Releaser); ok {
					_ = releaser.Release(cmd.Context())
				}
				fmt.Fprintln(out, report.String())
				if err != nil {
					return err
				}
				errs = append(errs, report.Err())
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Folder tree to process (defaults to paths.root_folder)")
	return cmd
}
