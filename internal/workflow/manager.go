package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scoreflow/internal/commit"
	"scoreflow/internal/config"
	"scoreflow/internal/instruments"
	"scoreflow/internal/logging"
	"scoreflow/internal/metadata"
	"scoreflow/internal/notifications"
	"scoreflow/internal/routing"
	"scoreflow/internal/session"
	"scoreflow/internal/storage"
	"scoreflow/internal/store"
)

// Manager coordinates session processing on top of the store.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	blobs        *storage.Local
	committer    *commit.Service
	normalizer   *metadata.Normalizer
	notifier     notifications.Service
	thresholds   routing.Thresholds
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time

	heartbeat *HeartbeatMonitor

	sessionLocks sync.Map

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastSession string
	lastTick    time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithThresholds overrides the routing thresholds from the config.
func WithThresholds(t routing.Thresholds) ManagerOption {
	return func(m *Manager) {
		m.thresholds = t
	}
}

// WithNotifier replaces the ntfy service built from the config.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, st *store.Store, blobs *storage.Local, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	normalizer := metadata.NewNormalizer(instruments.NewRegistry())
	var deleter storage.Deleter
	if blobs != nil {
		deleter = blobs
	}
	committer := commit.NewService(st, deleter, normalizer, logger,
		commit.WithAutoApproverPrefix(cfg.Commit.AutoApproverPrefix),
	)
	m := &Manager{
		cfg:          cfg,
		store:        st,
		blobs:        blobs,
		committer:    committer,
		normalizer:   normalizer,
		notifier:     notifications.NewService(cfg),
		thresholds:   cfg.Routing,
		logger:       logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
		heartbeat: NewHeartbeatMonitor(
			st,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the underlying store for read-only views.
func (m *Manager) Store() *store.Store { return m.store }

// Thresholds returns the routing thresholds in effect.
func (m *Manager) Thresholds() routing.Thresholds { return m.thresholds }

// Committer returns the commit service used by review and auto-commit.
func (m *Manager) Committer() *commit.Service { return m.committer }

// lockSession serializes mutations of one session inside this process.
func (m *Manager) lockSession(id string) func() {
	value, _ := m.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (m *Manager) sessionLogger(ctx context.Context, id string) (context.Context, *slog.Logger) {
	ctx = logging.WithSessionID(ctx, id)
	return ctx, logging.WithContext(ctx, m.logger)
}

// load fetches a session and fails fast on cancelled contexts.
func (m *Manager) load(ctx context.Context, id string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.GetSession(ctx, id)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastSession(id string) {
	m.mu.Lock()
	m.lastSession = id
	m.mu.Unlock()
}
