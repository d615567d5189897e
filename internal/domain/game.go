package domain

// Phase represents the lifecycle stage of a game session. Transitions are
// strictly forward; a new session is the only reset path.
type Phase string

const (
	// PhaseNotStarted is the pre-game state where the roster can change.
	PhaseNotStarted Phase = "not_started"
	// PhaseInitialized means blinds, stacks and the deck are in place.
	PhaseInitialized Phase = "initialized"
	// PhaseUserCardsDealt means every player holds two hole cards.
	PhaseUserCardsDealt Phase = "user_cards_dealt"
	// PhaseFlopDealt means the three flop cards are on the board.
	PhaseFlopDealt Phase = "flop_dealt"
	// PhaseTurnDealt means the turn card is on the board.
	PhaseTurnDealt Phase = "turn_dealt"
	// PhaseRiverDealt means the river card is on the board.
	PhaseRiverDealt Phase = "river_dealt"
)

// Game is the aggregate root for one session. It exclusively owns its deck
// and roster; both are destroyed with the session.
type Game struct {
	ID            string
	Name          string
	Active        bool
	SmallBlind    int64
	BigBlind      int64
	StartingChips int64
	Phase         Phase
	CreatedBy     string
	Players       []*Player
	Board         []Card
	Deck          *Deck
}

// NewGame returns a fresh, not-started session owned by creator.
func NewGame(id, name, creator string) *Game {
	return &Game{
		ID:        id,
		Name:      name,
		Phase:     PhaseNotStarted,
		CreatedBy: creator,
	}
}

// PlayerByID returns the seated player for an identity, or nil.
func (g *Game) PlayerByID(userID string) *Player {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Admin returns the player holding the admin flag, or nil before seating.
func (g *Game) Admin() *Player {
	for _, p := range g.Players {
		if p.IsAdmin {
			return p
		}
	}
	return nil
}

// Clone returns a deep copy of the session. Transitions mutate a clone and
// swap it in only after the new state is durably recorded, so a failed
// transition leaves no observable change.
func (g *Game) Clone() *Game {
	out := *g
	out.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		cp := *p
		cp.Hand = append([]Card(nil), p.Hand...)
		out.Players[i] = &cp
	}
	out.Board = append([]Card(nil), g.Board...)
	if g.Deck != nil {
		out.Deck = g.Deck.Clone()
	}
	return &out
}
