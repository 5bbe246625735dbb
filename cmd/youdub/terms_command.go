package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"youdub/internal/terminology"
	"youdub/internal/workdir"
)

func newTermsCommand(ctx *commandContext) *cobra.Command {
	termsCmd := &cobra.Command{
		Use:   "terms",
		Short: "Manage the translation terminology table",
	}
	termsCmd.AddCommand(newTermsListCommand(ctx))
	termsCmd.AddCommand(newTermsAddCommand(ctx))
	termsCmd.AddCommand(newTermsExtractCommand(ctx))
	return termsCmd
}

func loadTerms(ctx *commandContext) (*terminology.Enforcer, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	terms, err := terminology.Load(cfg.Paths.TerminologyFile)
	if err != nil {
		return nil, "", err
	}
	return terms, cfg.Paths.TerminologyFile, nil
}

func newTermsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, _, err := loadTerms(ctx)
			if err != nil {
				return err
			}
			table := terms.Terms()
			keys := make([]string, 0, len(table))
			for k := range table {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, []string{k, table[k]})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Term", "Rendering"}, rows, nil))
			fmt.Fprintf(out, "%d terms\n", len(keys))
			return nil
		},
	}
}

func newTermsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <term> <rendering>",
		Short: "Add or replace a term in the terminology file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, path, err := loadTerms(ctx)
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("paths.terminology_file is not configured")
			}
			if err := terms.Add(args[0], args[1]); err != nil {
				return err
			}
			if err := terms.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q -> %q to %s\n", args[0], args[1], path)
			return nil
		},
	}
}

func newTermsExtractCommand(ctx *commandContext) *cobra.Command {
	var minLength int
	cmd := &cobra.Command{
		Use:   "extract <file-or-folder>",
		Short: "List capitalized phrases missing from the table",
		Long: "Scan a text file, or the transcript of a video folder, for capitalized\n" +
			"phrases that have no terminology entry yet.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, _, err := loadTerms(ctx)
			if err != nil {
				return err
			}
			text, err := readSourceText(args[0])
			if err != nil {
				return err
			}
			candidates := terms.Extract(text, minLength)
			rows := make([][]string, 0, len(candidates))
			for i, c := range candidates {
				rows = append(rows, []string{strconv.Itoa(i + 1), c})
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No new terms found")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Candidate"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().IntVar(&minLength, "min-length", 3, "Minimum candidate length in characters")
	return cmd
}

// readSourceText returns the file's contents, or the joined transcript when
// path is a video folder.
func readSourceText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		return string(data), err
	}
	utterances, err := workdir.ReadTranscript(path)
	if err != nil {
		return "", err
	}
	var text []byte
	for _, u := range utterances {
		text = append(text, u.Text...)
		text = append(text, '\n')
	}
	return string(text), nil
}
