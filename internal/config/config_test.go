package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scoreflow/internal/config"
	"scoreflow/internal/routing"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv(config.EnvEnvironment, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "scoreflow", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if want := filepath.Join(tempHome, ".local", "share", "scoreflow"); cfg.Paths.DataDir != want {
		t.Fatalf("data dir = %q, want %q", cfg.Paths.DataDir, want)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "scoreflow.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind %q", cfg.Paths.APIBind)
	}
	if cfg.Commit.AutoApproverPrefix != "system:" {
		t.Fatalf("unexpected approver prefix %q", cfg.Commit.AutoApproverPrefix)
	}
	if cfg.IsProduction() {
		t.Fatal("default environment should be development")
	}
}

func TestDefaultRoutingMatchesEngineDefaults(t *testing.T) {
	if got := config.Default().Routing; got != routing.DefaultThresholds() {
		t.Fatalf("config routing defaults %+v differ from engine defaults %+v", got, routing.DefaultThresholds())
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var sample config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &sample); err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	def := config.Default()
	if sample.Routing != def.Routing {
		t.Errorf("sample routing %+v, default %+v", sample.Routing, def.Routing)
	}
	if sample.Workflow != def.Workflow {
		t.Errorf("sample workflow %+v, default %+v", sample.Workflow, def.Workflow)
	}
	if sample.Logging != def.Logging || sample.Server != def.Server || sample.Commit != def.Commit || sample.Notifications != def.Notifications {
		t.Errorf("sample ambient sections differ from defaults")
	}
	if sample.Paths != def.Paths {
		t.Errorf("sample paths %+v, default %+v", sample.Paths, def.Paths)
	}
}

func TestLoadOverridesAndEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvAPIToken, " secret ")
	t.Setenv(config.EnvEnvironment, "prod")

	path := filepath.Join(t.TempDir(), "scoreflow.toml")
	body := `
[paths]
data_dir = "~/scores"

[routing]
min_auto_commit_confidence = 90
autonomous_mode_enabled = false

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Routing.MinAutoCommitConfidence != 90 || cfg.Routing.AutonomousModeEnabled {
		t.Fatalf("routing overrides not applied: %+v", cfg.Routing)
	}
	if cfg.Routing.MinSkipSecondPassConfidence != 85 {
		t.Fatalf("unset threshold should keep default, got %v", cfg.Routing.MinSkipSecondPassConfidence)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("api token = %q", cfg.Paths.APIToken)
	}
	if !cfg.IsProduction() {
		t.Fatalf("environment = %q", cfg.Server.Environment)
	}
	if !strings.HasSuffix(cfg.Paths.DataDir, "scores") || !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data dir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv(config.EnvEnvironment, "")
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[paths]\nstaging_dir = \"x\"\n", "parse config"},
		{"bad threshold", "[routing]\nmin_text_coverage = 2\n", "routing"},
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"heartbeat", "[workflow]\nheartbeat_timeout = 5\n", "heartbeat_timeout"},
		{"bad bind", "[paths]\napi_bind = \"localhost\"\n", "api_bind"},
		{"production needs token", "[server]\nenvironment = \"production\"\n", "api_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleAndEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path, false); err == nil {
		t.Fatal("expected refusal to overwrite without force")
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("CreateSample force: %v", err)
	}

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.StorageDir = filepath.Join(dir, "storage")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.StorageDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", p, err)
		}
	}
}
