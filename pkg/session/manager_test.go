package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpulse/pkg/accounts"
	"xpulse/pkg/config"
	"xpulse/pkg/errors"
	"xpulse/pkg/logger"
	"xpulse/pkg/twitter"
)

type fakeClient struct {
	loginCalls   []string
	loginErr     func(username string) error
	loadErr      error
	loadedBlobs  [][]byte
	saveErr      error
	sessionBlob  []byte
}

func (f *fakeClient) Search(ctx context.Context, q twitter.Query) (twitter.PageHandle, error) {
	return nil, nil
}

func (f *fakeClient) Login(ctx context.Context, cred accounts.Credential) error {
	f.loginCalls = append(f.loginCalls, cred.Username)
	if f.loginErr != nil {
		return f.loginErr(cred.Username)
	}
	return nil
}

func (f *fakeClient) LoadSession(blob []byte) error {
	f.loadedBlobs = append(f.loadedBlobs, blob)
	return f.loadErr
}

func (f *fakeClient) SaveSession() ([]byte, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	if f.sessionBlob != nil {
		return f.sessionBlob, nil
	}
	return []byte(`{"auth_token": "tok", "ct0": "csrf"}`), nil
}

type memStore struct {
	blob  []byte
	saves int
}

func (m *memStore) Exists() bool { return m.blob != nil }

func (m *memStore) Load() ([]byte, error) {
	if m.blob == nil {
		return nil, stderrors.New("no session")
	}
	return m.blob, nil
}

func (m *memStore) Save(blob []byte) error {
	m.blob = blob
	m.saves++
	return nil
}

func (m *memStore) Delete() error {
	m.blob = nil
	return nil
}

func testPool(t *testing.T, usernames ...string) *accounts.Pool {
	t.Helper()
	bundle := "["
	for i, u := range usernames {
		if i > 0 {
			bundle += ","
		}
		bundle += `{"username": "` + u + `", "password": "pw"}`
	}
	bundle += "]"

	pool, err := accounts.Load(&config.AccountsConfig{Bundle: bundle})
	require.NoError(t, err)
	return pool
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestRestoreOrLoginPrefersPersistedSession(t *testing.T) {
	client := &fakeClient{}
	store := &memStore{blob: []byte(`{"auth_token": "tok", "ct0": "csrf"}`)}
	m := NewManager(testPool(t, "alpha"), store, func() Client { return client },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	got, err := m.RestoreOrLogin(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, Client(client), got)
	assert.Empty(t, client.loginCalls, "restore must not trigger a login")
	assert.Equal(t, StateActive, m.State())
}

func TestRestoreOrLoginForceNewSkipsRestore(t *testing.T) {
	client := &fakeClient{}
	store := &memStore{blob: []byte(`{"auth_token": "stale", "ct0": "stale"}`)}
	m := NewManager(testPool(t, "alpha"), store, func() Client { return client },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	_, err := m.RestoreOrLogin(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, client.loadedBlobs, "forceNew must bypass the persisted session")
	assert.Equal(t, []string{"alpha"}, client.loginCalls)
}

func TestRestoreOrLoginFallsBackToLoginOnInvalidSession(t *testing.T) {
	client := &fakeClient{loadErr: errors.New(errors.KindAuth, errors.StatusUnauthorized, "expired")}
	store := &memStore{blob: []byte(`{"auth_token": "stale", "ct0": "stale"}`)}
	m := NewManager(testPool(t, "alpha"), store, func() Client { return client },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	_, err := m.RestoreOrLogin(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, client.loginCalls)
}

func TestLoginAttemptsAreBoundedByPoolSize(t *testing.T) {
	client := &fakeClient{
		loginErr: func(string) error {
			return errors.New(errors.KindAuth, errors.StatusUnauthorized, "bad credentials")
		},
	}
	var sleeps []time.Duration
	m := NewManager(testPool(t, "alpha", "bravo", "charlie"), &memStore{},
		func() Client { return client },
		WithCooldown(5*time.Second),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
		WithLogger(logger.NewTestLogger()))

	_, err := m.RestoreOrLogin(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAuthExhausted)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, client.loginCalls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeps,
		"cool-down applies between attempts, not before the first")
	assert.Equal(t, StateAbandoned, m.State())
}

func TestLoginSucceedsOnLaterCredentialAndPersists(t *testing.T) {
	client := &fakeClient{
		loginErr: func(username string) error {
			if username == "alpha" {
				return errors.New(errors.KindAuth, errors.StatusUnauthorized, "bad credentials")
			}
			return nil
		},
	}
	store := &memStore{}
	m := NewManager(testPool(t, "alpha", "bravo"), store, func() Client { return client },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	_, err := m.RestoreOrLogin(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, client.loginCalls)
	assert.Equal(t, 1, store.saves, "successful login persists the session")
	assert.Equal(t, StateActive, m.State())
}

func TestInteractiveFallbackWhenPoolIsEmpty(t *testing.T) {
	client := &fakeClient{}
	store := &memStore{}
	m := NewManager(testPool(t), store, func() Client { return client },
		WithSleep(noSleep),
		WithLogger(logger.NewTestLogger()),
		WithInteractive(authenticatorFunc(func(ctx context.Context, c Client) error {
			return c.LoadSession([]byte(`{"auth_token": "manual", "ct0": "manual"}`))
		})))

	_, err := m.RestoreOrLogin(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, client.loadedBlobs, 1)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, StateActive, m.State())
}

func TestAuthExhaustedWithoutAnyPath(t *testing.T) {
	m := NewManager(testPool(t), &memStore{}, func() Client { return &fakeClient{} },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	_, err := m.RestoreOrLogin(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAuthExhausted)
	assert.Equal(t, StateAbandoned, m.State())
}

func TestRotateUsesNextCredentialAndFreshClient(t *testing.T) {
	var dialed []*fakeClient
	dial := func() Client {
		c := &fakeClient{}
		dialed = append(dialed, c)
		return c
	}
	store := &memStore{}
	m := NewManager(testPool(t, "alpha", "bravo"), store, dial,
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	_, err := m.RestoreOrLogin(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, dialed, 1)
	assert.Equal(t, []string{"alpha"}, dialed[0].loginCalls)

	rotated, err := m.Rotate(context.Background())
	require.NoError(t, err)
	require.Len(t, dialed, 2, "rotation dials a fresh client")
	assert.Same(t, Client(dialed[1]), rotated)
	assert.Equal(t, []string{"bravo"}, dialed[1].loginCalls)
	assert.Empty(t, dialed[1].loadedBlobs, "rotation never restores the persisted session")
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, StateActive, m.State())
}

func TestRotateOnEmptyPool(t *testing.T) {
	m := NewManager(testPool(t), &memStore{}, func() Client { return &fakeClient{} },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))

	_, err := m.Rotate(context.Background())
	assert.ErrorIs(t, err, errors.ErrEmptyPool)
}

func TestPoolSize(t *testing.T) {
	m := NewManager(testPool(t, "alpha", "bravo", "charlie"), &memStore{},
		func() Client { return &fakeClient{} },
		WithSleep(noSleep), WithLogger(logger.NewTestLogger()))
	assert.Equal(t, 3, m.PoolSize())
}

func TestClassifyDelegates(t *testing.T) {
	m := NewManager(testPool(t), &memStore{}, func() Client { return &fakeClient{} },
		WithLogger(logger.NewTestLogger()))

	err := errors.New(errors.KindAPI, errors.StatusTooManyRequests, "slow down")
	assert.Equal(t, errors.RateLimited, m.Classify(err))
}

// authenticatorFunc adapts a function to the Authenticator interface.
type authenticatorFunc func(ctx context.Context, client Client) error

func (f authenticatorFunc) Authenticate(ctx context.Context, client Client) error {
	return f(ctx, client)
}
