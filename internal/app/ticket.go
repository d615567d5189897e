package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// Ticket roles recognized at the table boundary.
const (
	TicketRolePlayer    = "player"
	TicketRoleSpectator = "spectator"
)

// TicketService issues and verifies signed room tickets. A ticket grants one
// identity entry to one room, either at a seat or as a spectator.
type TicketService struct {
	secret string
	issuer string
	ttl    time.Duration
}

// TicketClaims is the verified content of a room ticket.
type TicketClaims struct {
	UserID string
	RoomID string
	Role   string
}

// NewTicketService constructs a ticket service. secret and issuer must be
// non-empty for issuance to succeed.
func NewTicketService(secret, issuer string, ttl time.Duration) *TicketService {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &TicketService{secret: secret, issuer: issuer, ttl: ttl}
}

// IssueTicket signs a ticket admitting userID to roomID with the given role.
func (s *TicketService) IssueTicket(userID, roomID, role string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ticket service is nil")
	}
	if userID == "" || roomID == "" {
		return "", fmt.Errorf("user and room are required")
	}
	if role != TicketRolePlayer && role != TicketRoleSpectator {
		return "", fmt.Errorf("unsupported ticket role: %s", role)
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("ticket config is incomplete")
	}

	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"exp":  time.Now().Add(s.ttl).Unix(),
		"room": roomID,
		"role": role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyTicket validates the signature, expiry and claim shape of a ticket.
func (s *TicketService) VerifyTicket(tokenString string) (*TicketClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid ticket: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid ticket claims")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return nil, fmt.Errorf("ticket issued by %q", claims["iss"])
	}

	out := &TicketClaims{}
	if out.UserID, ok = claims["sub"].(string); !ok || out.UserID == "" {
		return nil, fmt.Errorf("ticket missing subject")
	}
	if out.RoomID, ok = claims["room"].(string); !ok || out.RoomID == "" {
		return nil, fmt.Errorf("ticket missing room")
	}
	if out.Role, ok = claims["role"].(string); !ok {
		return nil, fmt.Errorf("ticket missing role")
	}
	return out, nil
}
