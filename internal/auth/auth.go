// Package auth resolves the caller's identity from a tamper-evident cookie.
//
// The uid cookie carries "uid.base64url(HMAC-SHA256(secret, uid))". Anyone
// can read the uid, nobody without the secret can forge one. Guests are
// auto-provisioned on first contact, so every request that reaches a
// handler carries a stable user identity.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// CookieName is the identity cookie issued to every visitor.
	CookieName = "uid"

	// cookieMaxAge keeps guests stable across visits (30 days).
	cookieMaxAge = 30 * 24 * 60 * 60
)

// ErrNoSession indicates the request carries no valid identity cookie.
var ErrNoSession = errors.New("no session")

// Authenticator signs and verifies identity cookies.
type Authenticator struct {
	secret []byte
	secure bool
}

// New creates an Authenticator. secure controls the cookie Secure flag and
// should be true everywhere except local development.
func New(secret []byte, secure bool) *Authenticator {
	return &Authenticator{secret: secret, secure: secure}
}

// UserID extracts the verified user ID from the request's uid cookie.
// Returns ErrNoSession when the cookie is absent, malformed, or has a bad
// signature. Tampered cookies are indistinguishable from missing ones on
// purpose.
func (a *Authenticator) UserID(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}
	raw, ok := verifySignedUID(cookie.Value, a.secret)
	if !ok {
		return uuid.Nil, ErrNoSession
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}
	return id, nil
}

// Issue sets a signed uid cookie for the given user.
func (a *Authenticator) Issue(w http.ResponseWriter, userID uuid.UUID) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signUID(userID.String(), a.secret),
		Path:     "/",
		Secure:   a.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cookieMaxAge,
	})
}

// Provision returns the request's user ID, minting and setting a fresh
// guest identity when none is present.
func (a *Authenticator) Provision(w http.ResponseWriter, r *http.Request) uuid.UUID {
	if id, err := a.UserID(r); err == nil {
		return id
	}
	id := uuid.New()
	a.Issue(w, id)
	return id
}

// signUID creates the cookie value "uid.base64url(HMAC-SHA256(secret, uid))".
func signUID(uid string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(uid))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))
	return uid + "." + sig
}

// verifySignedUID splits a signed cookie value and verifies the HMAC
// signature in constant time. Returns the extracted uid and true on
// success, or empty string and false on any failure.
func verifySignedUID(value string, secret []byte) (string, bool) {
	idx := strings.LastIndex(value, ".")
	if idx < 1 {
		return "", false
	}
	uid, sigPart := value[:idx], value[idx+1:]

	actual, err := base64.URLEncoding.DecodeString(sigPart)
	if err != nil {
		return "", false
	}

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(uid))
	expected := h.Sum(nil)

	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		return "", false
	}
	return uid, true
}
