package memory

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
)

// Manager wraps a Store with per-session mutual exclusion and the expiry
// sweeper.
type Manager struct {
	Store

	log   logrus.FieldLogger
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, log logrus.FieldLogger) *Manager {
	return &Manager{
		Store: store,
		log:   logging.Component(log, "memory"),
		locks: make(map[string]*sessionLock),
	}
}

// Lock serializes work on one session and returns the unlock function.
// Entries are dropped once nobody holds or waits for them.
func (m *Manager) Lock(sessionID string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			m.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, sessionID)
			}
			m.mu.Unlock()
		})
	}
}

// ActiveLocks returns the number of sessions currently locked or awaited.
func (m *Manager) ActiveLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Sweep(ctx)
			if err != nil {
				m.log.WithError(err).Warn("Session sweep failed")
				continue
			}
			if removed > 0 {
				m.log.WithField("removed", removed).Info("🧹 Expired sessions removed")
			}
		}
	}
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.Store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
