// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshly/koshly/internal/identity"
)

/*
TestClient_SignInWithPassword_Success decodes a full provider session.
*/
func TestClient_SignInWithPassword_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/token", request.URL.Path)
		assert.Equal(t, "password", request.URL.Query().Get("grant_type"))
		assert.Equal(t, "pk-test", request.Header.Get("apikey"))

		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{
			"access_token": "header.payload.sig",
			"token_type": "bearer",
			"expires_in": 3600,
			"refresh_token": "rt-1",
			"user": {"id": "u-1", "email": "a@b.com", "is_anonymous": false}
		}`))
	}))
	defer server.Close()

	client := identity.NewClient(server.URL, "pk-test")
	session, err := client.SignInWithPassword(context.Background(), "a@b.com", "x")

	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", session.AccessToken)
	assert.Equal(t, "rt-1", session.RefreshToken)
	assert.Equal(t, 3600, session.ExpiresIn)
	require.NotNil(t, session.User)
	assert.Equal(t, "u-1", session.User.ID)
	assert.False(t, session.User.IsAnonymous)
}

/*
TestClient_SignInWithPassword_Denied maps a provider 400 to ErrDenied.
*/
func TestClient_SignInWithPassword_Denied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadRequest)
		_, _ = writer.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	}))
	defer server.Close()

	client := identity.NewClient(server.URL, "pk-test")
	session, err := client.SignInWithPassword(context.Background(), "a@b.com", "wrong")

	assert.Nil(t, session)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrDenied)
}

/*
TestClient_AuthorizeURL builds the redirect target without any HTTP call.
*/
func TestClient_AuthorizeURL(t *testing.T) {
	client := identity.NewClient("https://id.koshly.app/auth/v1", "pk-test")

	authorizeURL, err := client.AuthorizeURL("google", "/account")
	require.NoError(t, err)
	assert.Equal(t, "https://id.koshly.app/auth/v1/authorize?provider=google&redirect_to=%2Faccount", authorizeURL)

	_, err = client.AuthorizeURL("myspace", "/account")
	assert.Error(t, err)
}

/*
TestClient_GetSession_InvalidToken maps a provider 401 to ErrDenied.
*/
func TestClient_GetSession_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer stale-token", request.Header.Get("Authorization"))
		writer.WriteHeader(http.StatusUnauthorized)
		_, _ = writer.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
	}))
	defer server.Close()

	client := identity.NewClient(server.URL, "pk-test")
	user, err := client.GetSession(context.Background(), "stale-token")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, identity.ErrDenied)
}

/*
TestClient_SignOut_UnknownTokenIsIdempotent treats provider rejection as success.
*/
func TestClient_SignOut_UnknownTokenIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := identity.NewClient(server.URL, "pk-test")
	assert.NoError(t, client.SignOut(context.Background(), "already-gone"))
}
