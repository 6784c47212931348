// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package verify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshly/koshly/internal/verify"
)

/*
TestClient_Verify_Success checks that a solved challenge decodes fully.
*/
func TestClient_Verify_Success(t *testing.T) {
	var receivedSecret, receivedResponse, receivedIP string

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseForm())
		receivedSecret = request.PostFormValue("secret")
		receivedResponse = request.PostFormValue("response")
		receivedIP = request.PostFormValue("remoteip")

		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"success":true,"hostname":"koshly.app","action":"signin","error-codes":[]}`))
	}))
	defer server.Close()

	client := verify.NewClient(server.URL, "sk-test")
	result, err := client.Verify(context.Background(), "tok-abcdefghijklmnopqrst", "203.0.113.9")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "koshly.app", result.Hostname)
	assert.Equal(t, "signin", result.Action)
	assert.Empty(t, result.ErrorCodes)

	// The form payload must carry secret, response, and remoteip
	assert.Equal(t, "sk-test", receivedSecret)
	assert.Equal(t, "tok-abcdefghijklmnopqrst", receivedResponse)
	assert.Equal(t, "203.0.113.9", receivedIP)
}

/*
TestClient_Verify_Failure checks that a failed verdict is a Result, not an error.
*/
func TestClient_Verify_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer server.Close()

	client := verify.NewClient(server.URL, "sk-test")
	result, err := client.Verify(context.Background(), "tok-expired", "")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"invalid-input-response"}, result.ErrorCodes)
}

/*
TestClient_Verify_RemoteUnavailable checks that a 5xx becomes a transport error.
*/
func TestClient_Verify_RemoteUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := verify.NewClient(server.URL, "sk-test")
	result, err := client.Verify(context.Background(), "tok-any", "")

	assert.Nil(t, result)
	assert.Error(t, err)
}
