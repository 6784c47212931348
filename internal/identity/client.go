// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// requestTimeout bounds every provider round trip.
const requestTimeout = 10 * time.Second

// OAuthProviders is the closed set of OAuth integrations enabled for the
// Koshly frontend, in the order they appear on the sign-in page.
var OAuthProviders = []string{"google", "facebook", "apple"}

// Client implements [Provider] against a GoTrue-compatible REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a provider [Client].
//
// # Parameters
//   - baseURL: Root of the provider's auth API (e.g. https://id.koshly.app/auth/v1).
//   - apiKey: The public API key sent with every request.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// # Sign-In Variants

// SignInWithPassword exchanges email/password for a provider session.
func (client *Client) SignInWithPassword(context context.Context, email, password string) (*Session, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	session := &Session{}
	if err := client.call(context, http.MethodPost, "/token?grant_type=password", "", payload, session); err != nil {
		return nil, err
	}

	return session, nil
}

// SignInAnonymously allocates an ephemeral guest identity.
func (client *Client) SignInAnonymously(context context.Context) (*Session, error) {
	session := &Session{}

	// An empty signup body asks the provider for an anonymous identity.
	if err := client.call(context, http.MethodPost, "/signup", "", map[string]any{}, session); err != nil {
		return nil, err
	}

	return session, nil
}

// SendMagicLink asks the provider to deliver a one-time sign-in email.
func (client *Client) SendMagicLink(context context.Context, email, redirectTo string) error {
	payload := map[string]any{
		"email":       email,
		"create_user": true,
	}

	path := "/otp"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	return client.call(context, http.MethodPost, path, "", payload, nil)
}

// AuthorizeURL builds the browser redirect target for an OAuth sign-in.
//
// No HTTP call is made: the flow exits the gateway here and resumes on the
// provider's callback surface.
func (client *Client) AuthorizeURL(oauthProvider, redirectTo string) (string, error) {
	if !slices.Contains(OAuthProviders, oauthProvider) {
		return "", fmt.Errorf("identity_unknown_oauth_provider: %q", oauthProvider)
	}

	query := url.Values{}
	query.Set("provider", oauthProvider)
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	return client.baseURL + "/authorize?" + query.Encode(), nil
}

// # Session Introspection

// GetSession resolves the user behind a provider-issued access token.
func (client *Client) GetSession(context context.Context, accessToken string) (*User, error) {
	user := &User{}
	if err := client.call(context, http.MethodGet, "/user", accessToken, nil, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SignOut revokes the provider session behind the access token.
func (client *Client) SignOut(context context.Context, accessToken string) error {
	err := client.call(context, http.MethodPost, "/logout", accessToken, nil, nil)

	// Revoking a token the provider no longer knows is a no-op, not a failure.
	if err != nil && errors.Is(err, ErrDenied) {
		return nil
	}
	return err
}

// # Transport Plumbing

// call executes one provider round trip with the standard headers and
// decodes the JSON response into target (when target is non-nil).
func (client *Client) call(context context.Context, method, path, bearer string, payload any, target any) error {

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("identity_request_encode_failed: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(context, method, client.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("identity_request_build_failed: %w", err)
	}

	request.Header.Set("apikey", client.apiKey)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("identity_remote_call_failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	// 4xx means the provider examined and rejected the request. The body is
	// wrapped for server-side logs only.
	if response.StatusCode >= 400 && response.StatusCode < 500 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrDenied, response.StatusCode, string(detail))
	}

	if response.StatusCode >= 500 {
		return fmt.Errorf("identity_remote_status_unexpected: %d", response.StatusCode)
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("identity_response_decode_failed: %w", err)
	}

	return nil
}
