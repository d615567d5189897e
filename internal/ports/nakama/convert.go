package nakama

import (
	"holdem/internal/domain"
	"holdem/internal/rooms"
)

// PlayerState is the wire form of one seated player. Hole cards are only
// populated for the receiving player; everyone else sees the count.
type PlayerState struct {
	UserID    string   `json:"user_id"`
	Chips     int64    `json:"chips"`
	Seat      int      `json:"seat"`
	IsAdmin   bool     `json:"is_admin"`
	HandCount int      `json:"hand_count"`
	Hand      []string `json:"hand,omitempty"`
}

// RoomState is the wire form of a room snapshot.
type RoomState struct {
	RoomID         string        `json:"room_id"`
	Name           string        `json:"name"`
	Active         bool          `json:"active"`
	Phase          string        `json:"phase"`
	SmallBlind     int64         `json:"small_blind"`
	BigBlind       int64         `json:"big_blind"`
	StartingChips  int64         `json:"starting_chips"`
	CreatedBy      string        `json:"created_by"`
	Players        []PlayerState `json:"players"`
	Board          []string      `json:"board"`
	CardsRemaining int           `json:"cards_remaining"`
	Version        int64         `json:"version"`
	// Bankroll is the viewer's wallet balance, set on direct state reads.
	Bankroll int64 `json:"bankroll,omitempty"`
}

// HoleCards is the wire form of a private hand message.
type HoleCards struct {
	RoomID string   `json:"room_id"`
	Hand   []string `json:"hand"`
}

// GameError is the wire form of a rejected match command.
type GameError struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

func cardTokens(cards []domain.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Token()
	}
	return out
}

// toRoomState projects a snapshot for one viewer. Only the viewer's own hole
// cards cross the wire; pass an empty viewer for a spectator view.
func toRoomState(snap rooms.Snapshot, viewer string) RoomState {
	out := RoomState{
		RoomID:         snap.ID,
		Name:           snap.Name,
		Active:         snap.Active,
		Phase:          string(snap.Phase),
		SmallBlind:     snap.SmallBlind,
		BigBlind:       snap.BigBlind,
		StartingChips:  snap.StartingChips,
		CreatedBy:      snap.CreatedBy,
		Board:          cardTokens(snap.Board),
		CardsRemaining: snap.CardsRemaining,
		Version:        snap.Version,
	}
	out.Players = make([]PlayerState, 0, len(snap.Players))
	for _, p := range snap.Players {
		ps := PlayerState{
			UserID:    p.UserID,
			Chips:     p.Chips,
			Seat:      p.Seat,
			IsAdmin:   p.IsAdmin,
			HandCount: len(p.Hand),
		}
		if p.UserID == viewer {
			ps.Hand = cardTokens(p.Hand)
		}
		out.Players = append(out.Players, ps)
	}
	return out
}
