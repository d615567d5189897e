package app

import (
	"strings"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

func parseTicketClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			t.Fatalf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("failed to parse ticket: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("ticket claims are not MapClaims")
	}
	return claims
}

func TestIssueTicketClaims(t *testing.T) {
	svc := NewTicketService("test-secret", "holdem", time.Minute)

	tokenString, err := svc.IssueTicket("user-1", "room-1", TicketRolePlayer)
	if err != nil {
		t.Fatalf("IssueTicket error: %v", err)
	}

	claims := parseTicketClaims(t, tokenString, "test-secret")
	if claims["iss"] != "holdem" {
		t.Fatalf("iss = %v, want holdem", claims["iss"])
	}
	if claims["sub"] != "user-1" {
		t.Fatalf("sub = %v, want user-1", claims["sub"])
	}
	if claims["room"] != "room-1" {
		t.Fatalf("room = %v, want room-1", claims["room"])
	}
	if claims["role"] != TicketRolePlayer {
		t.Fatalf("role = %v, want %s", claims["role"], TicketRolePlayer)
	}
}

func TestIssueTicketValidation(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		issuer string
		userID string
		roomID string
		role   string
	}{
		{name: "MissingUser", secret: "s", issuer: "i", roomID: "r", role: TicketRolePlayer},
		{name: "MissingRoom", secret: "s", issuer: "i", userID: "u", role: TicketRolePlayer},
		{name: "BadRole", secret: "s", issuer: "i", userID: "u", roomID: "r", role: "dealer"},
		{name: "MissingSecret", issuer: "i", userID: "u", roomID: "r", role: TicketRolePlayer},
		{name: "MissingIssuer", secret: "s", userID: "u", roomID: "r", role: TicketRolePlayer},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			svc := NewTicketService(test.secret, test.issuer, time.Minute)
			if _, err := svc.IssueTicket(test.userID, test.roomID, test.role); err == nil {
				t.Fatal("expected IssueTicket to fail")
			}
		})
	}
}

func TestVerifyTicketRoundTrip(t *testing.T) {
	svc := NewTicketService("test-secret", "holdem", time.Minute)

	tokenString, err := svc.IssueTicket("user-1", "room-1", TicketRoleSpectator)
	if err != nil {
		t.Fatalf("IssueTicket error: %v", err)
	}

	claims, err := svc.VerifyTicket(tokenString)
	if err != nil {
		t.Fatalf("VerifyTicket error: %v", err)
	}
	if claims.UserID != "user-1" || claims.RoomID != "room-1" || claims.Role != TicketRoleSpectator {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyTicketRejectsTampering(t *testing.T) {
	svc := NewTicketService("test-secret", "holdem", time.Minute)
	other := NewTicketService("other-secret", "holdem", time.Minute)

	tokenString, err := other.IssueTicket("user-1", "room-1", TicketRolePlayer)
	if err != nil {
		t.Fatalf("IssueTicket error: %v", err)
	}
	if _, err := svc.VerifyTicket(tokenString); err == nil {
		t.Fatal("expected signature mismatch to fail verification")
	}

	good, err := svc.IssueTicket("user-1", "room-1", TicketRolePlayer)
	if err != nil {
		t.Fatalf("IssueTicket error: %v", err)
	}
	parts := strings.Split(good, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", good)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := svc.VerifyTicket(tampered); err == nil {
		t.Fatal("expected tampered payload to fail verification")
	}
}

func TestVerifyTicketRejectsExpired(t *testing.T) {
	svc := NewTicketService("test-secret", "holdem", -time.Minute)

	tokenString, err := svc.IssueTicket("user-1", "room-1", TicketRolePlayer)
	if err != nil {
		t.Fatalf("IssueTicket error: %v", err)
	}
	if _, err := svc.VerifyTicket(tokenString); err == nil {
		t.Fatal("expected expired ticket to fail verification")
	}
}
