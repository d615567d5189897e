package app

import "holdem/internal/domain"

// EventKind identifies emitted session events for dispatch to clients.
type EventKind string

const (
	EventGameStarted    EventKind = "game_started"
	EventHandDealt      EventKind = "hand_dealt"
	EventUserCardsDealt EventKind = "user_cards_dealt"
	EventFlopDealt      EventKind = "flop_dealt"
	EventTurnDealt      EventKind = "turn_dealt"
	EventRiverDealt     EventKind = "river_dealt"
	EventPlayerSat      EventKind = "player_sat"
	EventPlayerStood    EventKind = "player_stood"
	EventAdminChanged   EventKind = "admin_changed"
)

// Event is a session event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type GameStartedPayload struct {
	GameID        string
	Phase         domain.Phase
	SmallBlind    int64
	BigBlind      int64
	StartingChips int64
	PlayerCount   int
}

// HandDealtPayload carries one player's hole cards; always targeted.
type HandDealtPayload struct {
	UserID string
	Hand   []domain.Card
}

type UserCardsDealtPayload struct {
	CardsRemaining int
}

// CommunityDealtPayload carries newly exposed board cards for the flop,
// turn and river events.
type CommunityDealtPayload struct {
	Cards []domain.Card
	Board []domain.Card
}

type PlayerSatPayload struct {
	UserID string
	Seat   int
}

type PlayerStoodPayload struct {
	UserID string
}

type AdminChangedPayload struct {
	UserID string
}
