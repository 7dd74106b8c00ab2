package config

import "scoreflow/internal/routing"

const (
	defaultConfigPath         = "~/.config/scoreflow/config.toml"
	defaultDataDir            = "~/.local/share/scoreflow"
	defaultStorageDir         = "~/.local/share/scoreflow/storage"
	defaultLogDir             = "~/.local/share/scoreflow/logs"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 60
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultMaxParallel        = 4
	defaultDuplicateThreshold = 0.9
	defaultEnvironment        = EnvironmentDevelopment
	defaultAutoApproverPrefix = "system:"
	defaultNtfyTimeout        = 10
)

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Routing: routing.DefaultThresholds(),
		Commit: Commit{
			AutoApproverPrefix: defaultAutoApproverPrefix,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxParallel:        defaultMaxParallel,
			DuplicateThreshold: defaultDuplicateThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Server: Server{
			Environment: defaultEnvironment,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
