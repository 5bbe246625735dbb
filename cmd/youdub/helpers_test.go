package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	rootFolder string
	configPath string
	termsPath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("OPENAI_API_KEY", "")

	env := &cliTestEnv{
		baseDir:    base,
		rootFolder: filepath.Join(base, "videos"),
		configPath: filepath.Join(base, "config.toml"),
		termsPath:  filepath.Join(base, "terms.json"),
	}
	content := fmt.Sprintf(`[paths]
root_folder = %q
log_dir = %q
state_dir = %q
terminology_file = %q

[llm]
api_key = "sk-test"
`, env.rootFolder, filepath.Join(base, "logs"), filepath.Join(base, "state"), env.termsPath)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
