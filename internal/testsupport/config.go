package testsupport

import (
	"path/filepath"
	"testing"

	"scoreflow/internal/config"
	"scoreflow/internal/routing"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StorageDir = filepath.Join(base, "storage")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = "test-token"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithThresholds overrides the routing thresholds.
func WithThresholds(th routing.Thresholds) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Routing = th
	}
}

// WithAutonomousMode toggles routing.autonomous_mode_enabled.
func WithAutonomousMode(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Routing.AutonomousModeEnabled = enabled
	}
}

// WithEnvironment sets server.environment.
func WithEnvironment(env string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Environment = env
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
