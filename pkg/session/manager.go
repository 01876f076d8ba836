package session

import (
	"context"
	"fmt"
	"time"

	"xpulse/pkg/accounts"
	"xpulse/pkg/errors"
	"xpulse/pkg/logger"
	"xpulse/pkg/metrics"
	"xpulse/pkg/retry"
	"xpulse/pkg/twitter"
)

// Client is the capability interface the session manager hands out. The
// harvest controller only ever sees this handle, never the raw session
// state. The single concrete implementation is *twitter.Client.
type Client interface {
	Search(ctx context.Context, q twitter.Query) (twitter.PageHandle, error)
	Login(ctx context.Context, cred accounts.Credential) error
	LoadSession(blob []byte) error
	SaveSession() ([]byte, error)
}

// Authenticator is the interactive/cookie-import collaborator consulted as a
// last resort when no credential can produce a session.
type Authenticator interface {
	Authenticate(ctx context.Context, client Client) error
}

// State tracks the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateActive
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Manager owns exactly one authenticated client at a time. It restores
// persisted sessions, performs credential logins with rotation, and
// classifies the failures the harvest controller reports back.
type Manager struct {
	pool        *accounts.Pool
	store       Store
	dial        func() Client
	interactive Authenticator
	cooldown    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	log         logger.Logger

	client Client
	state  State
}

// ManagerOption customizes manager construction.
type ManagerOption func(*Manager)

// WithInteractive installs the interactive fallback collaborator.
func WithInteractive(a Authenticator) ManagerOption {
	return func(m *Manager) { m.interactive = a }
}

// WithCooldown sets the pause between consecutive credential login attempts.
func WithCooldown(d time.Duration) ManagerOption {
	return func(m *Manager) { m.cooldown = d }
}

// WithSleep injects the sleep function (tests pass a no-op).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ManagerOption {
	return func(m *Manager) { m.sleep = sleep }
}

// WithLogger sets the manager's logger.
func WithLogger(log logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a session manager. dial produces a fresh unauthenticated
// client; it is called once up front and again on every rotation.
func NewManager(pool *accounts.Pool, store Store, dial func() Client, opts ...ManagerOption) *Manager {
	m := &Manager{
		pool:     pool,
		store:    store,
		dial:     dial,
		cooldown: 5 * time.Second,
		sleep:    retry.Wait,
		state:    StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.GetLogger()
	}
	return m
}

// State returns the current session state.
func (m *Manager) State() State {
	return m.state
}

// PoolSize reports how many credentials are available for rotation.
func (m *Manager) PoolSize() int {
	return m.pool.Size()
}

// Classify maps a client error to its failure classification.
func (m *Manager) Classify(err error) errors.Classification {
	return errors.Classify(err)
}

// RestoreOrLogin produces an active client. Unless forceNew is set it first
// tries to restore a persisted session; then it attempts a credential login
// per pool entry with a cool-down between attempts; then the interactive
// collaborator. When every path fails the session is abandoned and
// ErrAuthExhausted is returned.
func (m *Manager) RestoreOrLogin(ctx context.Context, forceNew bool) (Client, error) {
	m.state = StateAuthenticating

	if m.client == nil {
		m.client = m.dial()
	}

	if !forceNew && m.store.Exists() {
		blob, err := m.store.Load()
		if err == nil {
			if err := m.client.LoadSession(blob); err == nil {
				m.log.Info("session restored from persisted state")
				m.state = StateActive
				return m.client, nil
			} else {
				m.log.WithError(err).Warn("persisted session is invalid, falling back to login")
			}
		} else {
			m.log.WithError(err).Warn("failed to load persisted session")
		}
	}

	if client, err := m.loginWithPool(ctx, m.client); err == nil {
		return client, nil
	} else if ctx.Err() != nil {
		m.state = StateAbandoned
		return nil, err
	}

	if m.interactive != nil {
		m.log.Info("falling back to interactive authentication")
		if err := m.interactive.Authenticate(ctx, m.client); err == nil {
			m.persist()
			m.state = StateActive
			return m.client, nil
		} else {
			m.log.WithError(err).Warn("interactive authentication failed")
		}
	}

	m.state = StateAbandoned
	return nil, fmt.Errorf("restore-or-login: %w", errors.ErrAuthExhausted)
}

// loginWithPool tries up to pool.Size() distinct credentials, sleeping the
// cool-down between attempts. The bound keeps a single pass from calling
// login more times than there are credentials.
func (m *Manager) loginWithPool(ctx context.Context, client Client) (Client, error) {
	if !m.pool.HasAny() {
		return nil, errors.ErrEmptyPool
	}

	attempts := m.pool.Size()
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := m.sleep(ctx, m.cooldown); err != nil {
				return nil, fmt.Errorf("login cancelled: %w", err)
			}
		}

		cred, err := m.pool.Next()
		if err != nil {
			return nil, err
		}

		m.log.InfoWithFields("attempting credential login", map[string]interface{}{
			"account": cred.MaskedLabel(),
			"attempt": i + 1,
			"of":      attempts,
		})
		metrics.LoginAttempts.Inc()

		if err := client.Login(ctx, cred); err != nil {
			lastErr = err
			m.log.WarnWithFields("credential login failed", map[string]interface{}{
				"account":        cred.MaskedLabel(),
				"classification": string(errors.Classify(err)),
				"error":          err.Error(),
			})
			continue
		}

		m.persist()
		m.state = StateActive
		return client, nil
	}

	if lastErr == nil {
		lastErr = errors.ErrEmptyPool
	}
	return nil, fmt.Errorf("no credential could log in: %w", lastErr)
}

// Rotate discards the current client and performs a direct credential login
// with the next pool entry, bypassing persisted-session restore. Used when
// the active session hits rate limiting and alternate accounts exist.
func (m *Manager) Rotate(ctx context.Context) (Client, error) {
	cred, err := m.pool.Next()
	if err != nil {
		return nil, err
	}

	m.state = StateAuthenticating
	m.client = m.dial()

	m.log.InfoWithFields("rotating to next account", map[string]interface{}{
		"account": cred.MaskedLabel(),
	})
	metrics.Rotations.Inc()

	if err := m.client.Login(ctx, cred); err != nil {
		m.state = StateUnauthenticated
		return nil, fmt.Errorf("rotation login failed: %w", err)
	}

	m.persist()
	m.state = StateActive
	return m.client, nil
}

// persist saves the current session state. Persistence failures are logged,
// never fatal: the session itself is still usable.
func (m *Manager) persist() {
	blob, err := m.client.SaveSession()
	if err != nil {
		m.log.WithError(err).Warn("failed to serialize session state")
		return
	}
	if err := m.store.Save(blob); err != nil {
		m.log.WithError(err).Warn("failed to persist session state")
	}
}
