package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

var testSecret = []byte("test-secret-at-least-32-characters!!")

func requestWithCookie(value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: value})
	return r
}

func TestIssueAndUserID_RoundTrip(t *testing.T) {
	a := New(testSecret, false)
	want := uuid.New()

	rec := httptest.NewRecorder()
	a.Issue(rec, want)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != CookieName {
		t.Errorf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}

	got, err := a.UserID(requestWithCookie(cookie.Value))
	if err != nil {
		t.Fatalf("UserID() error: %v", err)
	}
	if got != want {
		t.Errorf("UserID() = %v, want %v", got, want)
	}
}

func TestUserID_MissingCookie(t *testing.T) {
	a := New(testSecret, false)

	_, err := a.UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("UserID() = %v, want ErrNoSession", err)
	}
}

func TestUserID_RejectsTampering(t *testing.T) {
	a := New(testSecret, false)
	id := uuid.New()
	signed := signUID(id.String(), testSecret)

	tests := []struct {
		name  string
		value string
	}{
		{"swapped uid", uuid.New().String() + signed[strings.LastIndex(signed, "."):]},
		{"truncated signature", signed[:len(signed)-4]},
		{"no separator", strings.ReplaceAll(signed, ".", "")},
		{"bad base64", id.String() + ".!!!not-base64!!!"},
		{"wrong secret", signUID(id.String(), []byte("other-secret-also-32-characters!!!!!"))},
		{"empty", ""},
		{"non-uuid payload", signUID("not-a-uuid", testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.UserID(requestWithCookie(tt.value)); !errors.Is(err, ErrNoSession) {
				t.Errorf("UserID(%q) = %v, want ErrNoSession", tt.value, err)
			}
		})
	}
}

func TestProvision_ReusesExistingIdentity(t *testing.T) {
	a := New(testSecret, false)
	want := uuid.New()

	rec := httptest.NewRecorder()
	got := a.Provision(rec, requestWithCookie(signUID(want.String(), testSecret)))
	if got != want {
		t.Errorf("Provision() = %v, want %v", got, want)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("Provision should not reissue a valid cookie")
	}
}

func TestProvision_MintsGuest(t *testing.T) {
	a := New(testSecret, false)

	rec := httptest.NewRecorder()
	got := a.Provision(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got == uuid.Nil {
		t.Fatal("Provision returned nil uuid")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected guest cookie, got %d cookies", len(cookies))
	}
	uid, ok := verifySignedUID(cookies[0].Value, testSecret)
	if !ok || uid != got.String() {
		t.Errorf("guest cookie does not verify to %v", got)
	}
}
