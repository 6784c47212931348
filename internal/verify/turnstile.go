// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// siteverifyTimeout bounds the remote verification round trip. On expiry the
// caller sees a transport error, which the pipeline collapses into the
// uniform verification failure.
const siteverifyTimeout = 5 * time.Second

// Client is the concrete siteverify implementation of [Verifier].
type Client struct {
	endpoint   string
	secretKey  string
	httpClient *http.Client
}

// NewClient constructs a siteverify [Client].
//
// # Parameters
//   - endpoint: The siteverify URL (configurable for self-hosted test doubles).
//   - secretKey: The server-side secret issued by the challenge service.
func NewClient(endpoint, secretKey string) *Client {
	return &Client{
		endpoint:  endpoint,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: siteverifyTimeout,
		},
	}
}

/*
Verify posts the token to the siteverify endpoint and decodes the verdict.

Description: Sends secret, response, and remoteip as form fields per the
Turnstile protocol. The verdict itself (Success=false, mismatched hostname)
is returned in [Result], not as an error; only transport and decoding
problems produce an error.

Parameters:
  - context: context.Context
  - token: string
  - remoteIP: string

Returns:
  - *Result: Decoded remote verdict
  - error: Transport or decoding failures
*/
func (client *Client) Verify(context context.Context, token string, remoteIP string) (*Result, error) {

	// Assemble the form payload per the siteverify contract
	form := url.Values{}
	form.Set("secret", client.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, client.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("verify_request_build_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Execute the remote call
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("verify_remote_call_failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify_remote_status_unexpected: %d", response.StatusCode)
	}

	// Decode the verdict
	result := &Result{}
	if err := json.NewDecoder(response.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("verify_response_decode_failed: %w", err)
	}

	return result, nil
}
