package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"activation-api/internal/domain"
)

func TestJWTService_IssueAndParse(t *testing.T) {
	svc := NewJWTService("secret")
	member := domain.Member{
		ID:       "m1",
		UniqueID: "U1",
		FullName: "Ana",
	}

	token, err := svc.IssueToken(member)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.MemberID != "m1" || claims.UniqueID != "U1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// Vigencia fija de 2 horas.
	issued := claims.IssuedAt.Time
	expires := claims.ExpiresAt.Time
	if got := expires.Sub(issued); got != 2*time.Hour {
		t.Fatalf("expected 2h validity, got %v", got)
	}
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").IssueToken(domain.Member{ID: "m1", UniqueID: "U1"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := NewJWTService("secret-b").ParseToken(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}

func TestJWTService_EmptySecret(t *testing.T) {
	svc := NewJWTService("")
	if _, err := svc.IssueToken(domain.Member{ID: "m1"}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}

func TestJWTService_RejectsForeignIssuer(t *testing.T) {
	svc := NewJWTService("secret")

	claims := Claims{
		MemberID: "m1",
		UniqueID: "U1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "m1",
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.ParseToken(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("secret")

	claims := Claims{
		MemberID: "m1",
		UniqueID: "U1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "activation-api",
			Subject:   "m1",
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC().Add(-3 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.ParseToken(token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}
