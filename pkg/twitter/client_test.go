package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpulse/pkg/accounts"
	"xpulse/pkg/config"
	"xpulse/pkg/errors"
	"xpulse/pkg/logger"
	"xpulse/pkg/retry"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000

	client := NewClient(cfg, logger.NewTestLogger())
	client.SetBaseURL(server.URL)
	client.retryBackoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	return client, server
}

func authedClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	client, _ := newTestClient(t, handler)
	require.NoError(t, client.LoadSession([]byte(`{"auth_token": "tok", "ct0": "csrf"}`)))
	return client
}

func TestSearchBuildsDateBoundedQuery(t *testing.T) {
	var gotQuery, gotResultType string
	client := authedClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotResultType = r.URL.Query().Get("result_type")
		json.NewEncoder(w).Encode(searchResponse{})
	}))

	_, err := client.Search(context.Background(), Query{
		Keyword: "comarb",
		Since:   "2026-01-01",
		Until:   "2026-08-30",
		Lang:    "es",
		Latest:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "comarb lang:es since:2026-01-01 until:2026-08-30", gotQuery)
	assert.Equal(t, "recent", gotResultType)
}

func TestSearchSendsSessionCookies(t *testing.T) {
	var cookieHeader, csrfHeader string
	client := authedClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieHeader = r.Header.Get("Cookie")
		csrfHeader = r.Header.Get("x-csrf-token")
		json.NewEncoder(w).Encode(searchResponse{})
	}))

	_, err := client.Search(context.Background(), Query{Keyword: "sifere", Lang: "es"})
	require.NoError(t, err)

	assert.Contains(t, cookieHeader, "auth_token=tok")
	assert.Contains(t, cookieHeader, "ct0=csrf")
	assert.Equal(t, "csrf", csrfHeader)
}

func TestSearchPagination(t *testing.T) {
	calls := 0
	client := authedClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("cursor") {
		case "":
			json.NewEncoder(w).Encode(searchResponse{
				Posts:      []Post{{ID: "1", Text: "primera"}},
				NextCursor: "cursor-2",
			})
		case "cursor-2":
			json.NewEncoder(w).Encode(searchResponse{
				Posts: []Post{{ID: "2", Text: "segunda"}},
			})
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))

	first, err := client.Search(context.Background(), Query{Keyword: "sircar", Lang: "es"})
	require.NoError(t, err)
	require.Len(t, first.Posts(), 1)
	assert.True(t, first.HasNext())

	second, err := first.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, second.Posts(), 1)
	assert.Equal(t, "2", second.Posts()[0].ID)
	assert.False(t, second.HasNext())

	last, err := second.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)

	assert.Equal(t, 2, calls)
}

func TestSearchErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		classification errors.Classification
	}{
		{"rate limited", http.StatusTooManyRequests, "", errors.RateLimited},
		{"unauthorized", http.StatusUnauthorized, "", errors.Unauthorized},
		{"not found", http.StatusNotFound, "", errors.NotFound},
		{
			// The API reports login blocks over HTTP 403; the embedded
			// code must win.
			"body code overrides status",
			http.StatusForbidden,
			`{"errors": [{"code": 366, "message": "login blocked"}]}`,
			errors.Blocked,
		},
		{
			"challenge over 403",
			http.StatusForbidden,
			`{"errors": [{"code": 398, "message": "challenge required"}]}`,
			errors.ChallengeRequired,
		},
		{"server error is unknown", http.StatusInternalServerError, "", errors.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := authedClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))

			_, err := client.Search(context.Background(), Query{Keyword: "sirtac", Lang: "es"})
			require.Error(t, err)
			assert.Equal(t, tt.classification, errors.Classify(err))
		})
	}
}

func TestLoginInstallsCookies(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user", req.Username)
		assert.Equal(t, "secret", req.Password)
		json.NewEncoder(w).Encode(loginResponse{AuthToken: "fresh-tok", CSRFToken: "fresh-csrf"})
	}))

	err := client.Login(context.Background(), accounts.Credential{
		Username: "user",
		Password: "secret",
	})
	require.NoError(t, err)

	blob, err := client.SaveSession()
	require.NoError(t, err)

	var cookies map[string]string
	require.NoError(t, json.Unmarshal(blob, &cookies))
	assert.Equal(t, "fresh-tok", cookies["auth_token"])
	assert.Equal(t, "fresh-csrf", cookies["ct0"])
}

func TestLoginWithoutCookiesIsUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{})
	}))

	err := client.Login(context.Background(), accounts.Credential{Username: "u", Password: "p"})
	require.Error(t, err)
	assert.Equal(t, errors.Unauthorized, errors.Classify(err))
}

func TestLoadSessionValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	client := NewClient(cfg, logger.NewTestLogger())

	err := client.LoadSession([]byte("not json"))
	assert.Error(t, err)

	err = client.LoadSession([]byte(`{"auth_token": "tok"}`))
	require.Error(t, err)
	assert.Equal(t, errors.Unauthorized, errors.Classify(err))

	err = client.LoadSession([]byte(`{"auth_token": "tok", "ct0": "csrf"}`))
	assert.NoError(t, err)
}

func TestSaveSessionWithoutLogin(t *testing.T) {
	cfg := config.DefaultConfig()
	client := NewClient(cfg, logger.NewTestLogger())

	_, err := client.SaveSession()
	require.Error(t, err)
	assert.Equal(t, errors.Unauthorized, errors.Classify(err))
}

// flakyTransport fails the first N round trips, then delegates.
type flakyTransport struct {
	failures int
	calls    int
	base     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("connection reset by peer")
	}
	return f.base.RoundTrip(req)
}

func TestSearchRetriesTransientNetworkFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Posts: []Post{{ID: "1", Text: "primera"}}})
	}))
	require.NoError(t, client.LoadSession([]byte(`{"auth_token": "tok", "ct0": "csrf"}`)))

	transport := &flakyTransport{failures: 2, base: http.DefaultTransport}
	client.httpClient.Transport = transport

	page, err := client.Search(context.Background(), Query{Keyword: "comarb", Lang: "es"})
	require.NoError(t, err)
	require.Len(t, page.Posts(), 1)
	assert.Equal(t, 3, transport.calls)
}

func TestNetworkFailureIsTyped(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	require.NoError(t, client.LoadSession([]byte(`{"auth_token": "tok", "ct0": "csrf"}`)))

	_, err := client.Search(context.Background(), Query{Keyword: "sircreb", Lang: "es"})
	require.Error(t, err)
	assert.Equal(t, errors.Unknown, errors.Classify(err))
}
