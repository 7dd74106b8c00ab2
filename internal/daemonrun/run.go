package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"scoreflow/internal/config"
	"scoreflow/internal/daemon"
	"scoreflow/internal/logging"
	"scoreflow/internal/storage"
	"scoreflow/internal/store"
	"scoreflow/internal/workflow"
)

const pidFileName = "scoreflowd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel    string
	Development bool
	// Ready, when set, is called once the daemon has started.
	Ready func(*daemon.Daemon)
}

// Run starts the worker daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	var logPath string
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		logPath = filepath.Join(dir, logging.LogFileName)
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logRuntimeSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		return err
	}
	blobs, err := storage.NewLocal(cfg.Paths.StorageDir)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("open blob storage: %w", err)
	}

	manager := workflow.NewManager(cfg, st, blobs, logger)
	d, err := daemon.New(cfg, st, logger, manager)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another scoreflowd may hold "+cfg.LockPath()),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d)
	}

	<-signalCtx.Done()
	logger.Info("scoreflow daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
	)
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logRuntimeSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	th := cfg.Routing
	logger.Info("runtime snapshot",
		logging.String(logging.FieldEventType, "runtime_snapshot"),
		logging.String("database", cfg.DatabasePath()),
		logging.String("storage_dir", cfg.Paths.StorageDir),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("production", cfg.IsProduction()),
		logging.Bool("autonomous_mode", th.AutonomousModeEnabled),
		logging.Float64("min_text_coverage", th.MinTextCoverage),
		logging.Float64("min_auto_commit_confidence", th.MinAutoCommitConfidence),
		logging.Float64("min_skip_second_pass_confidence", th.MinSkipSecondPassConfidence),
		logging.Int("min_parts_for_auto_commit", th.MinPartsForAutoCommit),
		logging.Int("max_parallel", cfg.Workflow.MaxParallel),
	)
}
