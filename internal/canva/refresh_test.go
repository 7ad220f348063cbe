package canva_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/funeral-coordinator/internal/canva"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/stretchr/testify/require"
)

func TestRefresher_RotatesTokens(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, now)
	current := h.connect(t, time.Minute)

	next, err := h.refresher.Refresh(context.Background(), h.jar, current)
	require.NoError(t, err)
	require.Equal(t, "access-1", next.AccessToken)
	require.Equal(t, "refresh-1", next.RefreshToken)
	require.Equal(t, "Bearer", next.TokenType)
	require.Equal(t, "profile:read design:meta:read", next.Scope)
	require.Equal(t, now.Add(time.Hour), next.ExpiresAt)

	form := h.fake.lastTokenForm(t)
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "stored-refresh", form.Get("refresh_token"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))

	stored := h.tokens.Load(h.jar)
	require.NotNil(t, stored)
	require.Equal(t, "access-1", stored.AccessToken)
}

func TestRefresher_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	h := newHarness(t)
	h.fake.setToken(http.StatusOK, `{"access_token":"access-2","token_type":"Bearer","expires_in":600}`)
	current := h.connect(t, time.Minute)

	next, err := h.refresher.Refresh(context.Background(), h.jar, current)
	require.NoError(t, err)
	require.Equal(t, "access-2", next.AccessToken)
	require.Equal(t, "stored-refresh", next.RefreshToken)
	require.Empty(t, next.Scope)
}

func TestRefresher_MissingLifetimeIsDueImmediately(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, now)
	h.fake.setToken(http.StatusOK, `{"access_token":"access-3","token_type":"Bearer"}`)

	next, err := h.refresher.Refresh(context.Background(), h.jar, h.connect(t, time.Minute))
	require.NoError(t, err)
	require.Equal(t, now, next.ExpiresAt)
	require.True(t, next.ShouldRefresh())
}

func TestRefresher_FailureClearsSession(t *testing.T) {
	h := newHarness(t)
	h.fake.setToken(http.StatusUnauthorized, `{"error":"invalid_grant","error_description":"revoked"}`)
	current := h.connect(t, time.Minute)

	next, err := h.refresher.Refresh(context.Background(), h.jar, current)
	require.Nil(t, next)
	require.ErrorIs(t, err, apperrors.ErrTokenRefresh)

	var tokenErr *canva.TokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, canva.OpRefresh, tokenErr.Op)
	require.Equal(t, http.StatusUnauthorized, tokenErr.Status)
	require.JSONEq(t, `{"error":"invalid_grant","error_description":"revoked"}`, string(tokenErr.Body))

	require.True(t, h.jar.WasDeleted(session.TokenCookieName))
	require.Nil(t, h.tokens.Load(h.jar))
}

func TestRefresher_UnreachableTokenEndpoint(t *testing.T) {
	h := newHarness(t)
	h.fake.server.Close()
	current := h.connect(t, time.Minute)

	_, err := h.refresher.Refresh(context.Background(), h.jar, current)

	var tokenErr *canva.TokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, http.StatusBadGateway, tokenErr.Status)
	require.Nil(t, h.tokens.Load(h.jar))
}

func TestRefresher_TimeoutMapsToGatewayTimeout(t *testing.T) {
	h := newHarness(t)
	release := h.fake.holdTokenResponses()
	defer close(release)

	client := canva.NewTokenClient(h.cfg, canva.WithTimeout(50*time.Millisecond))
	refresher := canva.NewRefresher(client, h.tokens)

	_, err := refresher.Refresh(context.Background(), h.jar, h.connect(t, time.Minute))

	var tokenErr *canva.TokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, http.StatusGatewayTimeout, tokenErr.Status)
}

func TestTokenClient_ConcurrentRefreshesCollapse(t *testing.T) {
	h := newHarness(t)
	release := h.fake.holdTokenResponses()
	current := h.connect(t, time.Minute)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*session.TokenSession, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.client.Refresh(context.Background(), current)
		}(i)
	}

	require.Eventually(t, func() bool { return h.fake.tokenHits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, h.fake.tokenHits.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "access-1", results[i].AccessToken)
	}
	// Callers get their own copy.
	results[0].AccessToken = "mutated"
	require.Equal(t, "access-1", results[1].AccessToken)
}

func TestTokenClient_CancelledCallerDoesNotFailJoinedRefresh(t *testing.T) {
	h := newHarness(t)
	release := h.fake.holdTokenResponses()
	current := h.connect(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := h.client.Refresh(ctx, current)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return h.fake.tokenHits.Load() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		session *session.TokenSession
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		ts, err := h.client.Refresh(context.Background(), current)
		second <- outcome{ts, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, "access-1", got.session.AccessToken)
	require.EqualValues(t, 1, h.fake.tokenHits.Load())
}

func TestTokenClient_RefreshWithoutRefreshToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Refresh(context.Background(), &session.TokenSession{AccessToken: "a"})
	var tokenErr *canva.TokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, http.StatusUnauthorized, tokenErr.Status)
	require.Zero(t, h.fake.tokenHits.Load())
}
