package preflight

import (
	"context"
	"fmt"

	"youdub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Root folder", cfg.Paths.RootFolder))
	results = append(results, CheckLLM(ctx, "Translation LLM", cfg.LLM))
	results = append(results, CheckTTS(ctx, cfg.TTS.BaseURL))
	if cfg.Upload.Enabled {
		results = append(results, CheckCookieFile("Bilibili cookies", cfg.Upload.CookieFile))
	}
	for _, dep := range CheckSystemDeps(ctx, cfg) {
		if dep.Optional {
			continue
		}
		detail := dep.Command
		if !dep.Available {
			detail = dep.Detail
		}
		results = append(results, Result{Name: dep.Name, Passed: dep.Available, Detail: detail})
	}
	return results
}

// FirstFailure returns an error describing the first failed result, or nil.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if !r.Passed {
			return fmt.Errorf("preflight %s failed: %s", r.Name, r.Detail)
		}
	}
	return nil
}
