package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scoreflow/internal/config"
	"scoreflow/internal/logging"
	"scoreflow/internal/settings"
	"scoreflow/internal/storage"
	"scoreflow/internal/store"
	"scoreflow/internal/workflow"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// cliRuntime bundles the collaborators a command needs for one invocation.
type cliRuntime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	blobs    *storage.Local
	manager  *workflow.Manager
	settings *settings.Service
}

// withRuntime opens the session store for the duration of fn. Log records go
// to the command's stderr and stay quiet below warn unless debug is
// configured.
func (c *commandContext) withRuntime(cmd *cobra.Command, fn func(*cliRuntime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	level := "warn"
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer st.Close()

	blobs, err := storage.NewLocal(cfg.Paths.StorageDir)
	if err != nil {
		return fmt.Errorf("open blob storage: %w", err)
	}

	return fn(&cliRuntime{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		blobs:    blobs,
		manager:  workflow.NewManager(cfg, st, blobs, logger),
		settings: settings.NewService(st, logger),
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// orDash renders blank values as a dash in tables.
func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
