package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the client-held view of the signed-in user.
type Identity struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
}

// Profile is the editable part of an identity.
type Profile struct {
	DisplayName string
	PhotoURL    string
}

func (p Profile) empty() bool {
	return strings.TrimSpace(p.DisplayName) == "" && strings.TrimSpace(p.PhotoURL) == ""
}

// ProviderKind names an external sign-in flow.
type ProviderKind string

const (
	Google ProviderKind = "google"
	GitHub ProviderKind = "github"
)

// Expired reports whether the access token is no longer usable at now.
// ExpiresAt wins when set; otherwise a JWT token's exp claim is read without
// verifying the signature. Opaque tokens never expire client-side.
func (i *Identity) Expired(now time.Time) bool {
	if i == nil {
		return true
	}
	exp := i.ExpiresAt
	if exp.IsZero() {
		exp = tokenExpiry(i.AccessToken)
	}
	if exp.IsZero() {
		return false
	}
	return !now.Before(exp)
}

func tokenExpiry(token string) time.Time {
	if strings.Count(token, ".") != 2 {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
