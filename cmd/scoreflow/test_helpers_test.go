package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scoreflow/internal/config"
	"scoreflow/internal/metadata"
	"scoreflow/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv(config.EnvEnvironment, "")

	configPath := filepath.Join(base, "scoreflow.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
storage_dir = %q
log_dir = %q
api_bind = %q

[routing]
autonomous_mode_enabled = %t

[logging]
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.StorageDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Routing.AutonomousModeEnabled,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, env, "", args...)
}

func runCLIWithInput(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRunJSON runs the CLI with --json and decodes stdout into T.
func mustRunJSON[T any](t *testing.T, env *cliTestEnv, args ...string) T {
	t.Helper()
	stdout, stderr, err := runCLI(t, env, append([]string{"--json"}, args...)...)
	if err != nil {
		t.Fatalf("scoreflow %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	var out T
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	return out
}

func writeExtraction(t *testing.T, dir string, confidence float64) string {
	t.Helper()
	segmentation := confidence
	doc := metadata.Extracted{
		Title:                  "The Liberty Bell",
		Composer:               "Sousa, John Philip",
		ConfidenceScore:        confidence,
		SegmentationConfidence: &segmentation,
		CuttingInstructions: []metadata.CuttingInstruction{
			{PartName: "Flute", Instrument: "Flute", PageStart: 1, PageEnd: 1},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal extraction: %v", err)
	}
	path := filepath.Join(dir, "extraction.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write extraction: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
