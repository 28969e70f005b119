// Package session holds the credential of the signed-in floor user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"go.uber.org/zap"
)

// Event is published whenever the session starts or ends
type Event struct {
	Active bool
	User   identity.User
	// Forced is set when the server rejected the credential
	Forced bool
	Reason error
}

// Manager owns the current credential. It satisfies remote.TokenSource.
type Manager struct {
	logger *zap.Logger

	mu        sync.RWMutex
	current   *remote.Session
	observers []func(Event)
}

// NewManager creates a manager with no active session
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("session")}
}

// Token implements remote.TokenSource
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Token, true
}

// Current returns the active session
func (m *Manager) Current() (remote.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return remote.Session{}, false
	}
	return *m.current, true
}

// UserID returns the signed-in user's id, or ""
func (m *Manager) UserID() string {
	s, _ := m.Current()
	return s.User.ID
}

// Subscribe registers an observer for session changes
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Login authenticates through the gateway and starts the session
func (m *Manager) Login(ctx context.Context, gw remote.Gateway, creds remote.Credentials) (remote.Session, error) {
	s, err := gw.Login(ctx, creds)
	if err != nil {
		return remote.Session{}, fmt.Errorf("login: %w", err)
	}
	m.Begin(s)
	return s, nil
}

// Begin installs an issued session
func (m *Manager) Begin(s remote.Session) {
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	m.logger.Info("session started", zap.String("user_id", s.User.ID), zap.String("role", string(s.User.Role)))
	m.publish(Event{Active: true, User: s.User})
}

// Logout revokes the credential server-side and ends the session. The local
// session ends even when the server cannot be reached.
func (m *Manager) Logout(ctx context.Context, gw remote.Gateway) error {
	err := gw.Logout(ctx)
	if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, remote.ErrNoSession) {
		err = nil
	}
	m.end(Event{})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ForceLogout discards the session after the server rejected the credential.
// It is idempotent: concurrent rejections publish a single event.
func (m *Manager) ForceLogout(reason error) {
	m.end(Event{Forced: true, Reason: reason})
}

func (m *Manager) end(ev Event) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	ev.User = m.current.User
	m.current = nil
	m.mu.Unlock()

	if ev.Forced {
		m.logger.Warn("session discarded: credential rejected", zap.String("user_id", ev.User.ID), zap.Error(ev.Reason))
	} else {
		m.logger.Info("session ended", zap.String("user_id", ev.User.ID))
	}
	m.publish(ev)
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	obs := make([]func(Event), len(m.observers))
	copy(obs, m.observers)
	m.mu.RUnlock()
	for _, fn := range obs {
		fn(ev)
	}
}

var _ remote.TokenSource = (*Manager)(nil)
