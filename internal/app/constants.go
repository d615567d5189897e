package app

const (
	// HoleCardsPerPlayer is dealt to each seat when user cards go out.
	HoleCardsPerPlayer = 2
	// FlopCardCount is the number of community cards in the flop.
	FlopCardCount = 3
	// TurnCardCount is the number of community cards in the turn.
	TurnCardCount = 1
	// RiverCardCount is the number of community cards in the river.
	RiverCardCount = 1
)
