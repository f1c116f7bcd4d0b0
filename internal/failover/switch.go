// Package failover promotes a fallback provider to "current" after the
// forwarder succeeds on it, deduplicating concurrent promotions for the
// same (dialect, provider) pair.
package failover

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// Event is emitted (best-effort, via the observer channel) whenever a
// promotion succeeds.
type Event struct {
	Dialect    dialect.Dialect
	ProviderID string
	Source     string
}

// LiveBackupHook is an opaque side effect invoked after a successful
// promotion; its failure is logged but never rolls back the pointer
// update.
type LiveBackupHook func(dialect.Dialect, string) error

// Manager tracks in-flight promotion keys to prevent concurrent
// requests from flapping the current-provider pointer.
type Manager struct {
	mu       sync.Mutex
	inFlight map[string]struct{}

	cfg      *config.Manager
	logger   *slog.Logger
	events   chan Event
	backup   LiveBackupHook
}

// New builds a failover manager bound to the given config manager. The
// events channel is buffered so TrySwitch never blocks on an observer
// that isn't draining it; backup may be nil.
func New(cfg *config.Manager, logger *slog.Logger, backup LiveBackupHook) *Manager {
	return &Manager{
		inFlight: make(map[string]struct{}),
		cfg:      cfg,
		logger:   logger,
		events:   make(chan Event, 64),
		backup:   backup,
	}
}

// Events exposes the observable promotion event stream.
func (m *Manager) Events() <-chan Event { return m.events }

func key(d dialect.Dialect, providerID string) string {
	return fmt.Sprintf("%s:%s", d, providerID)
}

// TrySwitch promotes newProviderID to "current" for dialect d. Returns
// (false, nil) without error if a concurrent promotion for the same key
// is already in flight.
func (m *Manager) TrySwitch(d dialect.Dialect, newProviderID, source string) (bool, error) {
	k := key(d, newProviderID)

	m.mu.Lock()
	if _, busy := m.inFlight[k]; busy {
		m.mu.Unlock()
		return false, nil
	}
	m.inFlight[k] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inFlight, k)
		m.mu.Unlock()
	}()

	if err := m.cfg.SetCurrentProvider(d, newProviderID); err != nil {
		return false, fmt.Errorf("promote provider %q: %w", newProviderID, err)
	}

	select {
	case m.events <- Event{Dialect: d, ProviderID: newProviderID, Source: source}:
	default:
		m.logger.Warn("failover event channel full, dropping event", "dialect", d, "provider", newProviderID)
	}

	if m.backup != nil {
		if err := m.backup(d, newProviderID); err != nil {
			m.logger.Warn("live-backup hook failed after provider promotion", "dialect", d, "provider", newProviderID, "error", err)
		}
	}

	return true, nil
}
