package domain

// Player holds the state for one seated participant. Identities are opaque
// references owned by the external account system.
type Player struct {
	UserID  string
	Chips   int64
	Seat    int
	IsAdmin bool
	Hand    []Card
}

// SeatPlayers builds the roster for a starting game. Seats are assigned
// sequentially from 0 in input order and exactly the creator is marked
// admin. The identity list must already contain the creator.
func SeatPlayers(identities []string, creator string, chips int64, capacity int) ([]*Player, error) {
	if len(identities) > capacity {
		return nil, &TooManyPlayersError{Count: len(identities), Capacity: capacity}
	}

	seen := make(map[string]bool, len(identities))
	creatorSeated := false
	players := make([]*Player, 0, len(identities))
	for seat, userID := range identities {
		if seen[userID] {
			return nil, ErrDuplicateIdentity
		}
		seen[userID] = true
		if userID == creator {
			creatorSeated = true
		}
		players = append(players, &Player{
			UserID:  userID,
			Chips:   chips,
			Seat:    seat,
			IsAdmin: userID == creator,
		})
	}

	if !creatorSeated {
		return nil, &NotFoundError{Kind: "identity", ID: creator}
	}
	return players, nil
}
