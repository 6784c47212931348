// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

/*
Package auth — HTTP delivery layer for the sign-in pipeline.

The handler is a thin mediation layer between the web and the [Service]:

  - Protocol: RESTful JSON under /api/v1/auth.
  - Security: Injects the session cookies and the advisory recent_human
    marker; every rejection goes through [Translate] so only the uniform
    messages leave the building.
  - Verification: Validates input shape before dispatching to the pipeline.

This layer is strictly responsible for transport concerns (status codes,
headers, cookies, JSON).
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/koshly/koshly/internal/identity"
	"github.com/koshly/koshly/internal/platform/constants"
	"github.com/koshly/koshly/internal/platform/middleware"
	requestutil "github.com/koshly/koshly/internal/platform/request"
	"github.com/koshly/koshly/internal/platform/respond"
	"github.com/koshly/koshly/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the sign-in HTTP endpoints.
type Handler struct {
	authService *Service

	// secureCookies marks every cookie Secure; on in production.
	secureCookies bool
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with the sign-in routes.
//
// # Endpoints
//   - POST /signin            : Password variant.
//   - POST /signin/anonymous  : Guest variant.
//   - POST /signin/magic-link : Out-of-band email link.
//   - POST /signin/oauth      : OAuth initiation (returns authorize URL).
//   - POST /signout           : Revokes the provider session.
//   - GET  /me                : Auth-state prober (UX only).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/signin", handler.signIn)
	router.Post("/signin/anonymous", handler.signInAnonymous)
	router.Post("/signin/magic-link", handler.magicLink)
	router.Post("/signin/oauth", handler.startOAuth)
	router.Post("/signout", handler.signOut)
	router.Get("/me", handler.me)

	return router
}

// # Request Payloads

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	VerificationToken string `json:"cf_turnstile_response"`
}

type anonymousRequest struct {
	VerificationToken string `json:"cf_turnstile_response"`
}

type magicLinkRequest struct {
	Email             string `json:"email"`
	RedirectTo        string `json:"redirect_to"`
	VerificationToken string `json:"cf_turnstile_response"`
}

type oauthRequest struct {
	Provider          string `json:"provider"`
	RedirectTo        string `json:"redirect_to"`
	VerificationToken string `json:"cf_turnstile_response"`
}

// # Handlers

/*
SignIn authenticates with email and password.

POST /api/v1/auth/signin

Description: Runs the full admission pipeline, exchanges the credentials
with the identity provider, and injects the session cookies plus the
advisory recent_human marker.

Request:
  - Body: signInRequest (Email, Password, VerificationToken)

Response:
  - 200: {ok, user}: Sign-in established; cookies set
  - 400: Verification required/failed (uniform messages)
  - 401: Invalid login credentials
  - 429: Too many attempts
*/
func (handler *Handler) signIn(writer http.ResponseWriter, request *http.Request) {
	var input signInRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.SignInWithPassword(request.Context(), PasswordInput{
		Email:             input.Email,
		Password:          input.Password,
		VerificationToken: input.VerificationToken,
		IPAddress:         middleware.RealIP(request),
		UserAgent:         request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, Translate(err))
		return
	}

	handler.writeSessionCookies(writer, session)

	respond.OK(writer, map[string]any{
		"ok":   true,
		"user": session.User,
	})
}

/*
SignInAnonymous establishes an ephemeral guest session.

POST /api/v1/auth/signin/anonymous

Request:
  - Body: anonymousRequest (VerificationToken)

Response:
  - 200: {ok, user}: Guest session established; cookies set
  - 400/429: Uniform pipeline rejections
*/
func (handler *Handler) signInAnonymous(writer http.ResponseWriter, request *http.Request) {
	var input anonymousRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.authService.SignInAnonymously(request.Context(), AnonymousInput{
		VerificationToken: input.VerificationToken,
		IPAddress:         middleware.RealIP(request),
		UserAgent:         request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, Translate(err))
		return
	}

	handler.writeSessionCookies(writer, session)

	respond.OK(writer, map[string]any{
		"ok":   true,
		"user": session.User,
	})
}

/*
MagicLink asks the provider to email a one-time sign-in link.

POST /api/v1/auth/signin/magic-link

Description: Terminates at "email sent". The response does not reveal
whether the address belongs to an account.

Request:
  - Body: magicLinkRequest (Email, RedirectTo, VerificationToken)

Response:
  - 200: {ok}: Link dispatched (or silently dropped for unknown addresses)
  - 400/429: Uniform pipeline rejections
*/
func (handler *Handler) magicLink(writer http.ResponseWriter, request *http.Request) {
	var input magicLinkRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.SendMagicLink(request.Context(), MagicLinkInput{
		Email:             input.Email,
		RedirectTo:        input.RedirectTo,
		VerificationToken: input.VerificationToken,
		IPAddress:         middleware.RealIP(request),
		UserAgent:         request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, Translate(err))
		return
	}

	respond.OK(writer, map[string]any{"ok": true})
}

/*
StartOAuth builds the provider's authorization URL for a browser redirect.

POST /api/v1/auth/signin/oauth

Description: The browser navigates to the returned URL; the provider's
callback completes the sign-in out of band.

Request:
  - Body: oauthRequest (Provider, RedirectTo, VerificationToken)

Response:
  - 200: {ok, url}: Authorization URL
  - 400/429: Validation or uniform pipeline rejections
*/
func (handler *Handler) startOAuth(writer http.ResponseWriter, request *http.Request) {
	var input oauthRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldProvider, input.Provider).
		OneOf(FieldProvider, input.Provider, identity.OAuthProviders...)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	authorizeURL, err := handler.authService.StartOAuth(request.Context(), OAuthInput{
		Provider:          input.Provider,
		RedirectTo:        input.RedirectTo,
		VerificationToken: input.VerificationToken,
		IPAddress:         middleware.RealIP(request),
		UserAgent:         request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, Translate(err))
		return
	}

	respond.OK(writer, map[string]any{
		"ok":  true,
		"url": authorizeURL,
	})
}

/*
SignOut revokes the provider session and clears the cookies.

POST /api/v1/auth/signout

Response:
  - 204: No Content: Session terminated (idempotent)
*/
func (handler *Handler) signOut(writer http.ResponseWriter, request *http.Request) {

	accessToken := ""
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil {
		accessToken = cookie.Value
	}

	if err := handler.authService.SignOut(request.Context(), accessToken); err != nil {
		respond.Error(writer, request, Translate(err))
		return
	}

	handler.clearSessionCookies(writer)
	respond.NoContent(writer)
}

/*
Me reports the auth state behind the request's credentials.

GET /api/v1/auth/me

Description: UX-only prober. Fast path: locally verified claims injected by
the authentication middleware. Fallback: remote provider lookup raced
against the probe timeout. Every failure degrades to an anonymous answer;
this endpoint never gates anything.

Response:
  - 200: {authenticated, user?}: Current identity or anonymous
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {

	// Fast path: provider JWT already verified locally by the middleware
	if claims := requestutil.Claims(request); claims != nil {
		respond.OK(writer, map[string]any{
			"authenticated": true,
			"user": map[string]any{
				"id":           claims.UserID(),
				"email":        claims.Email,
				"role":         claims.Role,
				"is_anonymous": claims.IsAnonymous,
			},
		})
		return
	}

	accessToken := ""
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil {
		accessToken = cookie.Value
	}

	user, _ := handler.authService.Probe(request.Context(), accessToken)
	if user == nil {
		respond.OK(writer, map[string]any{"authenticated": false})
		return
	}

	respond.OK(writer, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// # Cookie Orchestration

// writeSessionCookies injects the provider-issued tokens and the advisory
// recent_human marker.
func (handler *Handler) writeSessionCookies(writer http.ResponseWriter, session *identity.Session) {

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   session.ExpiresIn,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if session.RefreshToken != "" {
		http.SetCookie(writer, &http.Cookie{
			Name:     constants.RefreshTokenCookieName,
			Value:    session.RefreshToken,
			Path:     constants.RefreshTokenCookiePath,
			MaxAge:   int(RefreshCookieTTL.Seconds()),
			Secure:   handler.secureCookies,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	// Advisory marker: UX only, carries no authorization weight
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RecentHumanCookieName,
		Value:    "1",
		Path:     "/",
		MaxAge:   int(constants.RecentHumanCookieTTL.Seconds()),
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookies expires every cookie this system owns.
func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	expired := []http.Cookie{
		{Name: constants.AccessTokenCookieName, Path: "/"},
		{Name: constants.RefreshTokenCookieName, Path: constants.RefreshTokenCookiePath},
		{Name: constants.RecentHumanCookieName, Path: "/"},
	}

	for _, cookie := range expired {
		cookie.Value = ""
		cookie.MaxAge = -1
		cookie.Secure = handler.secureCookies
		cookie.HttpOnly = true
		cookie.SameSite = http.SameSiteLaxMode
		http.SetCookie(writer, &cookie)
	}
}
