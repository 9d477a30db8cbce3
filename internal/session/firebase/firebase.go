// Package firebase implements session.Provider over the Identity Toolkit
// REST API (accounts:signUp, accounts:signInWithPassword, ...).
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coursion/internal/httpx"
	"coursion/internal/session"
)

const DefaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

// ErrFlowCancelled is returned by a CredentialFlow when the user backs out.
var ErrFlowCancelled = errors.New("firebase: credential flow cancelled")

// Credential is what an external provider hands back (an OAuth id or
// access token) before it is exchanged for a Firebase session.
type Credential struct {
	IDToken     string
	AccessToken string
}

// CredentialFlow runs the interactive part of an external sign-in.
type CredentialFlow interface {
	Credential(ctx context.Context, kind session.ProviderKind) (Credential, error)
}

var providerIDs = map[session.ProviderKind]string{
	session.Google: "google.com",
	session.GitHub: "github.com",
}

type Provider struct {
	HTTP   *httpx.Client
	APIKey string
	Flow   CredentialFlow

	// RequestURI is sent with signInWithIdp; any authorized redirect works.
	RequestURI string
	now        func() time.Time
}

// New builds a provider. h should not carry a TokenSource: these calls
// authenticate with the API key.
func New(h *httpx.Client, apiKey string, flow CredentialFlow) *Provider {
	return &Provider{
		HTTP:       h,
		APIKey:     apiKey,
		Flow:       flow,
		RequestURI: "http://localhost",
		now:        time.Now,
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (p *Provider) identity(r authResponse, prev *session.Identity) *session.Identity {
	id := &session.Identity{}
	if prev != nil {
		*id = *prev
	}
	if r.LocalID != "" {
		id.UID = r.LocalID
	}
	if r.Email != "" {
		id.Email = r.Email
	}
	if r.DisplayName != "" {
		id.DisplayName = r.DisplayName
	}
	if r.PhotoURL != "" {
		id.PhotoURL = r.PhotoURL
	}
	if r.IDToken != "" {
		id.AccessToken = r.IDToken
		id.ExpiresAt = time.Time{}
		if secs, err := strconv.Atoi(r.ExpiresIn); err == nil && secs > 0 {
			id.ExpiresAt = p.now().Add(time.Duration(secs) * time.Second)
		}
	}
	if r.RefreshToken != "" {
		id.RefreshToken = r.RefreshToken
	}
	return id
}

func (p *Provider) call(ctx context.Context, method string, body any) (authResponse, error) {
	var out authResponse
	path := "/accounts:" + method + "?" + url.Values{"key": {p.APIKey}}.Encode()
	if err := p.HTTP.Do(ctx, http.MethodPost, path, body, &out); err != nil {
		return out, mapError(err)
	}
	return out, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*session.Identity, error) {
	r, err := p.call(ctx, "signUp", passwordRequest{email, password, true})
	if err != nil {
		return nil, fmt.Errorf("firebase: sign up: %w", err)
	}
	return p.identity(r, nil), nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	r, err := p.call(ctx, "signInWithPassword", passwordRequest{email, password, true})
	if err != nil {
		return nil, fmt.Errorf("firebase: sign in: %w", err)
	}
	return p.identity(r, nil), nil
}

func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"requestType": "PASSWORD_RESET", "email": email}
	if _, err := p.call(ctx, "sendOobCode", body); err != nil {
		return fmt.Errorf("firebase: password reset: %w", err)
	}
	return nil
}

func (p *Provider) SignInWithProvider(ctx context.Context, kind session.ProviderKind) (*session.Identity, error) {
	providerID, ok := providerIDs[kind]
	if !ok {
		return nil, &session.AuthError{Kind: session.ErrOperationNotAllowed, Code: "unsupported-provider:" + string(kind)}
	}
	if p.Flow == nil {
		return nil, &session.AuthError{Kind: session.ErrOperationNotAllowed, Code: "no-credential-flow"}
	}

	cred, err := p.Flow.Credential(ctx, kind)
	if err != nil {
		if errors.Is(err, ErrFlowCancelled) || errors.Is(err, context.Canceled) {
			return nil, &session.AuthError{Kind: session.ErrProviderCancelled, Code: "popup-closed-by-user", Err: err}
		}
		return nil, &session.AuthError{Kind: session.ErrUnknown, Code: "credential-flow", Err: err}
	}

	post := url.Values{"providerId": {providerID}}
	switch {
	case cred.IDToken != "":
		post.Set("id_token", cred.IDToken)
	case cred.AccessToken != "":
		post.Set("access_token", cred.AccessToken)
	default:
		return nil, &session.AuthError{Kind: session.ErrInvalidCredential, Code: "empty-credential"}
	}

	body := map[string]any{
		"postBody":            post.Encode(),
		"requestUri":          p.RequestURI,
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	}
	r, err := p.call(ctx, "signInWithIdp", body)
	if err != nil {
		return nil, fmt.Errorf("firebase: sign in with %s: %w", kind, err)
	}
	return p.identity(r, nil), nil
}

func (p *Provider) UpdateProfile(ctx context.Context, id *session.Identity, prof session.Profile) (*session.Identity, error) {
	if id == nil || id.AccessToken == "" {
		return nil, &session.AuthError{Kind: session.ErrInvalidCredential, Code: "missing-id-token"}
	}
	body := map[string]any{
		"idToken":           id.AccessToken,
		"displayName":       prof.DisplayName,
		"photoUrl":          prof.PhotoURL,
		"returnSecureToken": true,
	}
	r, err := p.call(ctx, "update", body)
	if err != nil {
		return nil, fmt.Errorf("firebase: update profile: %w", err)
	}
	out := p.identity(r, id)
	// empty strings clear the field server side; the response omits them
	out.DisplayName = prof.DisplayName
	out.PhotoURL = prof.PhotoURL
	return out, nil
}

var codeKinds = map[string]error{
	"EMAIL_EXISTS":              session.ErrEmailInUse,
	"INVALID_PASSWORD":          session.ErrInvalidCredential,
	"INVALID_LOGIN_CREDENTIALS": session.ErrInvalidCredential,
	"INVALID_IDP_RESPONSE":      session.ErrInvalidCredential,
	"INVALID_ID_TOKEN":          session.ErrInvalidCredential,
	"EMAIL_NOT_FOUND":           session.ErrUserNotFound,
	"USER_NOT_FOUND":            session.ErrUserNotFound,
	"USER_DISABLED":             session.ErrAccountDisabled,
	"WEAK_PASSWORD":             session.ErrWeakCredential,
	"INVALID_EMAIL":             session.ErrInvalidEmail,
	"MISSING_EMAIL":             session.ErrInvalidEmail,
	"OPERATION_NOT_ALLOWED":     session.ErrOperationNotAllowed,
	"PASSWORD_LOGIN_DISABLED":   session.ErrOperationNotAllowed,
}

// errorCode extracts "WEAK_PASSWORD" from
// {"error":{"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}.
func errorCode(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	code, _, _ := strings.Cut(e.Error.Message, ":")
	return strings.TrimSpace(code)
}

func mapError(err error) error {
	var herr *httpx.HTTPError
	if !errors.As(err, &herr) {
		return &session.AuthError{Kind: session.ErrUnknown, Code: "transport", Err: err}
	}
	code := errorCode(herr.Body)
	kind, ok := codeKinds[code]
	if !ok {
		kind = session.ErrUnknown
	}
	return &session.AuthError{Kind: kind, Code: code, Err: err}
}
