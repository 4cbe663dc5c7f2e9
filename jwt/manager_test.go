package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortKey(t *testing.T) {
	_, err := NewManager(Config{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	if !errors.Is(err, ErrKeyTooShort) {
		t.Fatalf("expected ErrKeyTooShort, got %v", err)
	}
}

func TestNewManagerRejectsZeroTTL(t *testing.T) {
	_, err := NewManager(Config{Secret: testSecret, RefreshTTL: time.Hour})
	if !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestIssueAccessClaims(t *testing.T) {
	m := newTestManager(t, nil)

	token, err := m.IssueAccess(Subject{UserID: 42, Email: "mario@test.it", Role: "CUSTOMER", FirstName: "Mario", Provider: "GOOGLE"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWS with two dots, got %q", token)
	}

	claims, err := m.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "mario@test.it" || claims.UserID != 42 || claims.Role != "CUSTOMER" || claims.FirstName != "Mario" || claims.Provider != "GOOGLE" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Use != UseAccess {
		t.Fatalf("expected access use, got %q", claims.Use)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Fatalf("expected exp-iat of 15m, got %v", got)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
}

func TestIssueRefreshOmitsRoleAndName(t *testing.T) {
	m := newTestManager(t, nil)

	token, err := m.IssueRefresh(Subject{UserID: 42, Email: "mario@test.it", Role: "CUSTOMER", FirstName: "Mario", Provider: "GOOGLE"})
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	claims, err := m.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Role != "" || claims.FirstName != "" || claims.Provider != "" {
		t.Fatalf("refresh token leaked profile claims: %+v", claims)
	}
	if claims.Use != UseRefresh || claims.UserID != 42 {
		t.Fatalf("unexpected refresh claims %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 7*24*time.Hour {
		t.Fatalf("expected exp-iat of 7d, got %v", got)
	}
}

func TestIsValid(t *testing.T) {
	m := newTestManager(t, nil)
	token, err := m.IssueAccess(Subject{UserID: 1, Email: "a@b.it", Role: "ADMIN"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if !m.IsValid(token, "a@b.it") {
		t.Fatal("expected fresh token to be valid")
	}
	if m.IsValid(token, "other@b.it") {
		t.Fatal("expected subject mismatch to be invalid")
	}

	last := token[len(token)-1]
	for _, c := range base64URLAlphabet {
		if byte(c) == last {
			continue
		}
		tampered := token[:len(token)-1] + string(c)
		if m.IsValid(tampered, "a@b.it") {
			t.Fatalf("last character %q -> %q still valid", last, c)
		}
	}
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestLastCharacterTamperAcrossTokens(t *testing.T) {
	m := newTestManager(t, nil)
	for i := int64(1); i <= 20; i++ {
		token, err := m.IssueAccess(Subject{UserID: i, Email: "a@b.it", Role: "CUSTOMER"})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		last := token[len(token)-1]
		for _, c := range base64URLAlphabet {
			if byte(c) == last {
				continue
			}
			if m.IsValid(token[:len(token)-1]+string(c), "a@b.it") {
				t.Fatalf("token %d: last character %q -> %q still valid", i, last, c)
			}
		}
	}
}

func TestDecodeRejectsForeignKey(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager(Config{
		Secret:     []byte("ffffffffffffffffffffffffffffffff"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("other manager: %v", err)
	}
	token, err := other.IssueAccess(Subject{UserID: 1, Email: "a@b.it"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error, got %v", err)
	}
	if m.IsValid(token, "a@b.it") {
		t.Fatal("expected token signed by a different key to be invalid")
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)

	claims := Claims{Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "a@b.it",
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Decode(token); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Decode(none); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestDecodeAcceptsExpiredButIsValidRejects(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	past := newTestManager(t, func() time.Time { return issuedAt })
	token, err := past.IssueAccess(Subject{UserID: 1, Email: "a@b.it"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m := newTestManager(t, nil)
	claims, err := m.Decode(token)
	if err != nil {
		t.Fatalf("expected expired token to decode, got %v", err)
	}
	if !m.Expired(claims) {
		t.Fatal("expected claims to be expired")
	}
	if m.IsValid(token, "a@b.it") {
		t.Fatal("expected expired token to be invalid")
	}
	if _, err := m.Validate(token, UseAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateChecksUse(t *testing.T) {
	m := newTestManager(t, nil)
	refresh, err := m.IssueRefresh(Subject{UserID: 1, Email: "a@b.it"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Validate(refresh, UseAccess); !errors.Is(err, ErrTokenWrongUse) {
		t.Fatalf("expected ErrTokenWrongUse, got %v", err)
	}
	if _, err := m.Validate(refresh, UseRefresh); err != nil {
		t.Fatalf("expected refresh token to validate as refresh: %v", err)
	}
}

func TestDecodeRejectsEmptyAndGarbage(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Decode("   "); !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("expected ErrTokenEmpty, got %v", err)
	}
	if _, err := m.Decode("not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestIssuerMismatchRejected(t *testing.T) {
	issuerA, err := NewManager(Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "a"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	issuerB, err := NewManager(Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "b"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := issuerA.IssueAccess(Subject{UserID: 1, Email: "a@b.it"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuerB.Decode(token); !errors.Is(err, ErrTokenClaims) {
		t.Fatalf("expected issuer mismatch to fail, got %v", err)
	}
}
