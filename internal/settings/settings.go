package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"scoreflow/internal/logging"
)

// Masking sentinels.
const (
	SentinelSet   = "__SET__"
	SentinelUnset = "__UNSET__"
	SentinelClear = "__CLEAR__"
)

var keepSentinels = []string{"***", "******", SentinelSet}

// ErrUnknownKey reports a key that is not a registered setting.
var ErrUnknownKey = errors.New("unknown setting")

// Store persists raw setting values.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	ListSettings(ctx context.Context) (map[string]string, error)
}

// Definition describes one known setting.
type Definition struct {
	Key         string
	Secret      bool
	Description string
}

// Definitions lists the settings read by the recognition collaborators.
var Definitions = []Definition{
	{Key: "model_api_key", Secret: true, Description: "API key for the metadata recognition model"},
	{Key: "model_endpoint", Description: "Base URL of the metadata recognition model"},
	{Key: "model_name", Description: "Model identifier used for metadata recognition"},
	{Key: "ocr_api_key", Secret: true, Description: "API key for the OCR provider"},
	{Key: "ocr_language", Description: "Language hint passed to OCR"},
}

// View is the reportable form of a setting.
type View struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Secret      bool   `json:"secret"`
	Set         bool   `json:"set"`
	Description string `json:"description,omitempty"`
}

// Action is the outcome of one update.
type Action string

const (
	ActionNone     Action = "unchanged"
	ActionKept     Action = "kept"
	ActionCleared  Action = "cleared"
	ActionReplaced Action = "replaced"
)

// Change records what Update did to a key.
type Change struct {
	Key    string `json:"key"`
	Action Action `json:"action"`
}

// Service applies the sentinel rules on top of a Store.
type Service struct {
	store  Store
	defs   map[string]Definition
	order  []string
	logger *slog.Logger
}

// NewService builds a service over store. With no definitions the package
// defaults are used.
func NewService(store Store, logger *slog.Logger, defs ...Definition) *Service {
	if len(defs) == 0 {
		defs = Definitions
	}
	s := &Service{
		store:  store,
		defs:   make(map[string]Definition, len(defs)),
		logger: logging.NewComponentLogger(logger, "settings"),
	}
	for _, def := range defs {
		key := normalizeKey(def.Key)
		if key == "" {
			continue
		}
		def.Key = key
		if _, dup := s.defs[key]; !dup {
			s.order = append(s.order, key)
		}
		s.defs[key] = def
	}
	return s
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *Service) definition(key string) (Definition, error) {
	def, ok := s.defs[normalizeKey(key)]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownKey, strings.TrimSpace(key))
	}
	return def, nil
}

// Show reports every known setting. Secret values are replaced by
// SentinelSet or SentinelUnset.
func (s *Service) Show(ctx context.Context) ([]View, error) {
	stored, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	views := make([]View, 0, len(s.order))
	for _, key := range s.order {
		def := s.defs[key]
		value, ok := stored[key]
		views = append(views, view(def, value, ok))
	}
	return views, nil
}

func view(def Definition, value string, ok bool) View {
	v := View{Key: def.Key, Secret: def.Secret, Set: ok, Description: def.Description}
	switch {
	case def.Secret && ok:
		v.Value = SentinelSet
	case def.Secret:
		v.Value = SentinelUnset
	default:
		v.Value = value
	}
	return v
}

// Value returns the real stored value for internal callers.
func (s *Service) Value(ctx context.Context, key string) (string, bool, error) {
	def, err := s.definition(key)
	if err != nil {
		return "", false, err
	}
	return s.store.GetSetting(ctx, def.Key)
}

// Update applies one incoming value using the sentinel rules.
func (s *Service) Update(ctx context.Context, key, incoming string) (Change, error) {
	def, err := s.definition(key)
	if err != nil {
		return Change{}, err
	}
	change := Change{Key: def.Key}
	trimmed := strings.TrimSpace(incoming)

	switch {
	case trimmed == "":
		change.Action = ActionNone
	case slices.Contains(keepSentinels, trimmed):
		change.Action = ActionKept
	case trimmed == SentinelUnset:
		// Report-only; writing it back never stores the literal.
		change.Action = ActionNone
	case trimmed == SentinelClear:
		if err := s.store.DeleteSetting(ctx, def.Key); err != nil {
			return Change{}, err
		}
		change.Action = ActionCleared
	default:
		if err := s.store.PutSetting(ctx, def.Key, trimmed); err != nil {
			return Change{}, err
		}
		change.Action = ActionReplaced
	}

	if change.Action == ActionCleared || change.Action == ActionReplaced {
		s.logger.Info("setting updated",
			logging.String(logging.FieldEventType, "setting_updated"),
			logging.String("key", def.Key),
			logging.String("action", string(change.Action)),
			logging.Bool("secret", def.Secret),
		)
	}
	return change, nil
}

// Apply updates several keys. Unknown keys fail the whole call before any
// write happens.
func (s *Service) Apply(ctx context.Context, values map[string]string) ([]Change, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, err := s.definition(key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		change, err := s.Update(ctx, key, values[key])
		if err != nil {
			return changes, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}
