package accounts

import (
	"fmt"
	"math/rand"

	"xpulse/pkg/config"
	"xpulse/pkg/errors"
)

// Source records where a credential came from; bundle entries take
// precedence over the single-account triple.
type Source int

const (
	SourceBundle Source = iota
	SourceSingle
	SourceVault
)

// Credential is one account's login material plus a display label. Immutable
// once loaded.
type Credential struct {
	Label    string
	Username string
	Email    string
	Password string
	Source   Source
}

// Pool is an ordered, rotating set of credentials. It is populated once at
// startup and never resized. A single harvesting flow owns it, so there is
// no internal locking.
type Pool struct {
	creds  []Credential
	cursor int
}

// Option customizes pool construction.
type Option func(*options)

type options struct {
	shuffle  bool
	rng      *rand.Rand
	fallback []Credential
}

// WithShuffle controls the one-time shuffle that distributes login load
// across runs.
func WithShuffle(enabled bool) Option {
	return func(o *options) { o.shuffle = enabled }
}

// WithRand injects the shuffle randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithFallback provides credentials (typically from the system keychain)
// used only when the configured sources yield none.
func WithFallback(creds []Credential) Option {
	return func(o *options) { o.fallback = creds }
}

// Load populates a pool from the configured sources in precedence order:
// the multi-account bundle, then the single username/password triple. When
// neither source is present the pool is empty and no error is returned; the
// session manager must then fall back to its interactive collaborator.
func Load(cfg *config.AccountsConfig, opts ...Option) (*Pool, error) {
	o := options{shuffle: cfg.Shuffle}
	for _, opt := range opts {
		opt(&o)
	}

	entries, err := cfg.DecodeBundle()
	if err != nil {
		return nil, fmt.Errorf("failed to load account bundle: %w", err)
	}

	pool := &Pool{}
	for _, e := range entries {
		if e.Username == "" || e.Password == "" {
			continue
		}
		label := e.Label
		if label == "" {
			label = e.Username
		}
		pool.creds = append(pool.creds, Credential{
			Label:    label,
			Username: e.Username,
			Email:    e.Email,
			Password: e.Password,
			Source:   SourceBundle,
		})
	}

	if len(pool.creds) == 0 && cfg.Username != "" && cfg.Password != "" {
		pool.creds = append(pool.creds, Credential{
			Label:    cfg.Username,
			Username: cfg.Username,
			Email:    cfg.Email,
			Password: cfg.Password,
			Source:   SourceSingle,
		})
	}

	if len(pool.creds) == 0 {
		for _, cred := range o.fallback {
			if cred.Username == "" || cred.Password == "" {
				continue
			}
			if cred.Label == "" {
				cred.Label = cred.Username
			}
			cred.Source = SourceVault
			pool.creds = append(pool.creds, cred)
		}
	}

	if o.shuffle && len(pool.creds) > 1 {
		shuffle := rand.Shuffle
		if o.rng != nil {
			shuffle = o.rng.Shuffle
		}
		shuffle(len(pool.creds), func(i, j int) {
			pool.creds[i], pool.creds[j] = pool.creds[j], pool.creds[i]
		})
	}

	return pool, nil
}

// HasAny reports whether the pool holds at least one credential.
func (p *Pool) HasAny() bool {
	return len(p.creds) > 0
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.creds)
}

// Next returns the credential at the rotation cursor and advances it. The
// cursor advances exactly once per successful call.
func (p *Pool) Next() (Credential, error) {
	if len(p.creds) == 0 {
		return Credential{}, errors.ErrEmptyPool
	}
	cred := p.creds[p.cursor%len(p.creds)]
	p.cursor++
	return cred, nil
}

// Peek returns the credential Next would yield without advancing the cursor.
func (p *Pool) Peek() (Credential, error) {
	if len(p.creds) == 0 {
		return Credential{}, errors.ErrEmptyPool
	}
	return p.creds[p.cursor%len(p.creds)], nil
}

// MaskedLabel masks credential material for logging.
func (c Credential) MaskedLabel() string {
	if len(c.Username) <= 4 {
		return c.Label + " (****)"
	}
	return fmt.Sprintf("%s (%s...)", c.Label, c.Username[:4])
}
