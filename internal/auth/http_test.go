// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshly/koshly/internal/platform/constants"
	"github.com/koshly/koshly/internal/platform/middleware"
	"github.com/koshly/koshly/internal/platform/sec"
)

// newTestServer wires a fixture service behind the real routes.
func newTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	handler := NewHandler(f.service, false)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	response, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = response.Body.Close() })
	return response
}

func cookieByName(response *http.Response, name string) *http.Cookie {
	for _, cookie := range response.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

type dataEnvelope struct {
	Data map[string]any `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// # Sign-In Endpoints

/*
TestHTTP_SignIn_HappyPath verifies the end-to-end password flow: 200, ok
payload, session cookies, and the advisory recent_human marker with its
ten-minute lifetime.
*/
func TestHTTP_SignIn_HappyPath(t *testing.T) {
	f := newFixture(enforceAll())
	server := newTestServer(t, f)

	response := postJSON(t, server.URL+"/signin",
		`{"email":"a@b.com","password":"x","cf_turnstile_response":"`+validToken+`"}`)

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, true, body.Data["ok"])

	// 1. Provider tokens land in httpOnly cookies
	accessCookie := cookieByName(response, constants.AccessTokenCookieName)
	require.NotNil(t, accessCookie)
	assert.Equal(t, "provider-access-token", accessCookie.Value)
	assert.True(t, accessCookie.HttpOnly)
	assert.Equal(t, "/", accessCookie.Path)

	refreshCookie := cookieByName(response, constants.RefreshTokenCookieName)
	require.NotNil(t, refreshCookie)
	assert.Equal(t, constants.RefreshTokenCookiePath, refreshCookie.Path)

	// 2. Advisory marker: Max-Age=600, httpOnly, Lax, path /
	humanCookie := cookieByName(response, constants.RecentHumanCookieName)
	require.NotNil(t, humanCookie)
	assert.Equal(t, 600, humanCookie.MaxAge)
	assert.True(t, humanCookie.HttpOnly)
	assert.Equal(t, "/", humanCookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, humanCookie.SameSite)
}

/*
TestHTTP_SignIn_ShortToken verifies a too-short token is rejected with the
uniform required message and zero calls to the verification service.
*/
func TestHTTP_SignIn_ShortToken(t *testing.T) {
	f := newFixture(enforceAll())
	server := newTestServer(t, f)

	response := postJSON(t, server.URL+"/signin",
		`{"email":"a@b.com","password":"x","cf_turnstile_response":"12345"}`)

	require.Equal(t, http.StatusBadRequest, response.StatusCode)

	var body errorEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, "Security verification required", body.Error)
	assert.Zero(t, f.verifier.calls)
	assert.Empty(t, response.Cookies())
}

/*
TestHTTP_SignIn_ConsumedToken verifies a replayed token surfaces the same
uniform message as a failed verdict.
*/
func TestHTTP_SignIn_ConsumedToken(t *testing.T) {
	f := newFixture(enforceAll())
	f.replays.alreadyConsumed = true
	server := newTestServer(t, f)

	response := postJSON(t, server.URL+"/signin",
		`{"email":"a@b.com","password":"x","cf_turnstile_response":"`+validToken+`"}`)

	require.Equal(t, http.StatusBadRequest, response.StatusCode)

	var body errorEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, "Security verification failed", body.Error)
	assert.Zero(t, f.provider.passwordCalls)
}

/*
TestHTTP_SignIn_MissingEmail verifies input-shape validation runs before the
pipeline.
*/
func TestHTTP_SignIn_MissingEmail(t *testing.T) {
	f := newFixture(enforceAll())
	server := newTestServer(t, f)

	response := postJSON(t, server.URL+"/signin",
		`{"password":"x","cf_turnstile_response":"`+validToken+`"}`)

	require.Equal(t, http.StatusBadRequest, response.StatusCode)

	var body errorEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Zero(t, f.verifier.calls)
}

/*
TestHTTP_MagicLink_EmailSent verifies the out-of-band variant terminates at
an ok response without session cookies.
*/
func TestHTTP_MagicLink_EmailSent(t *testing.T) {
	f := newFixture(enforceAll())
	f.verifier.result.Action = ActionMagicLink
	server := newTestServer(t, f)

	response := postJSON(t, server.URL+"/signin/magic-link",
		`{"email":"a@b.com","cf_turnstile_response":"`+validToken+`"}`)

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, true, body.Data["ok"])
	assert.Nil(t, cookieByName(response, constants.AccessTokenCookieName))
	assert.Nil(t, cookieByName(response, constants.RecentHumanCookieName))
}

/*
TestHTTP_OAuth_ReturnsURL verifies the OAuth initiation returns the
authorize URL and rejects unknown providers before the pipeline runs.
*/
func TestHTTP_OAuth_ReturnsURL(t *testing.T) {
	f := newFixture(enforceAll())
	f.verifier.result.Action = ActionOAuth
	server := newTestServer(t, f)

	// 1. Known provider
	response := postJSON(t, server.URL+"/signin/oauth",
		`{"provider":"google","redirect_to":"/account","cf_turnstile_response":"`+validToken+`"}`)

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Contains(t, body.Data["url"], "provider=google")

	// 2. Unknown provider never reaches the gate
	verifierCallsBefore := f.verifier.calls
	response = postJSON(t, server.URL+"/signin/oauth",
		`{"provider":"myspace","cf_turnstile_response":"`+validToken+`"}`)

	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, verifierCallsBefore, f.verifier.calls)
}

// # Session Lifecycle Endpoints

/*
TestHTTP_SignOut_ClearsCookies verifies signout answers 204 and expires
every cookie this system owns.
*/
func TestHTTP_SignOut_ClearsCookies(t *testing.T) {
	f := newFixture(enforceAll())
	server := newTestServer(t, f)

	request, err := http.NewRequest(http.MethodPost, server.URL+"/signout", nil)
	require.NoError(t, err)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "provider-access-token"})

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	require.Equal(t, http.StatusNoContent, response.StatusCode)

	for _, name := range []string{
		constants.AccessTokenCookieName,
		constants.RefreshTokenCookieName,
		constants.RecentHumanCookieName,
	} {
		cookie := cookieByName(response, name)
		require.NotNil(t, cookie, name)
		assert.Negative(t, cookie.MaxAge, name)
	}
}

/*
TestHTTP_Me_BlockingProviderAnswersAnonymous verifies the prober endpoint
renders an answer within its bound even when the provider hangs, degrading
to anonymous.
*/
func TestHTTP_Me_BlockingProviderAnswersAnonymous(t *testing.T) {
	f := newFixture(enforceAll())
	f.provider.blockSessions = make(chan struct{})
	defer close(f.provider.blockSessions)
	f.service.probeTimeout = 50 * time.Millisecond
	server := newTestServer(t, f)

	request, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
	require.NoError(t, err)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "some-token"})

	started := time.Now()
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Less(t, time.Since(started), time.Second)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, false, body.Data["authenticated"])
}

/*
TestHTTP_Me_RemoteFallback verifies the prober resolves a user through the
provider when no locally verified claims are present.
*/
func TestHTTP_Me_RemoteFallback(t *testing.T) {
	f := newFixture(enforceAll())
	server := newTestServer(t, f)

	request, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
	require.NoError(t, err)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "provider-access-token"})

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, true, body.Data["authenticated"])

	user, ok := body.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", user["email"])
}

/*
TestHTTP_Me_NoCredentials verifies a bare request is anonymous with zero
provider calls.
*/
func TestHTTP_Me_NoCredentials(t *testing.T) {
	f := newFixture(enforceAll())
	server := newTestServer(t, f)

	response, err := http.Get(server.URL + "/me")
	require.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, false, body.Data["authenticated"])
	assert.Zero(t, f.provider.sessionCalls)
}

const sessionSecret = "unit-test-session-secret"

// newAuthenticatedTestServer mounts the routes behind the session middleware,
// the way the API server wires them.
func newAuthenticatedTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	verifier, err := sec.NewSessionVerifier(sessionSecret)
	require.NoError(t, err)
	handler := NewHandler(f.service, false)
	server := httptest.NewServer(middleware.Authenticate(verifier)(handler.Routes()))
	t.Cleanup(server.Close)
	return server
}

// signSessionToken mints an HS256 session JWT the way the identity provider does.
func signSessionToken(t *testing.T, secret string, claims *sec.SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

/*
TestHTTP_Me_LocalClaimsFastPath verifies a valid session JWT is answered from
the locally verified claims with ZERO provider round trips.
*/
func TestHTTP_Me_LocalClaimsFastPath(t *testing.T) {
	f := newFixture(enforceAll())
	server := newAuthenticatedTestServer(t, f)

	token := signSessionToken(t, sessionSecret, &sec.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "a@b.com",
		Role:  "authenticated",
	})

	request, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
	require.NoError(t, err)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: token})

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, true, body.Data["authenticated"])

	user, ok := body.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user-42", user["id"])
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, "authenticated", user["role"])
	assert.Equal(t, false, user["is_anonymous"])

	// The JWT signature was enough; the provider was never consulted
	assert.Zero(t, f.provider.sessionCalls)
}

/*
TestHTTP_Me_ForeignTokenFallsBackToRemote verifies a token the verifier cannot
validate is not rejected outright: the request proceeds as anonymous and the
prober resolves the session remotely.
*/
func TestHTTP_Me_ForeignTokenFallsBackToRemote(t *testing.T) {
	f := newFixture(enforceAll())
	server := newAuthenticatedTestServer(t, f)

	// Signed with a different secret, so local verification fails
	token := signSessionToken(t, "rotated-away-secret", &sec.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	request, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
	require.NoError(t, err)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: token})

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer func() { _ = response.Body.Close() }()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var body dataEnvelope
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, true, body.Data["authenticated"])

	user, ok := body.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", user["email"])

	// Resolution went through the provider, not the local claims
	assert.Equal(t, 1, f.provider.sessionCalls)
}
