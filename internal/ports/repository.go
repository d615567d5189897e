package ports

import (
	"context"

	"holdem/internal/domain"
)

// GameRepository persists game sessions. A state transition is complete only
// once Save has returned, so implementations must write synchronously.
type GameRepository interface {
	// Save durably records the full session state, including the deck.
	Save(ctx context.Context, game *domain.Game) error

	// Load reconstructs a session by id. Returns domain.NotFoundError when
	// no record exists.
	Load(ctx context.Context, id string) (*domain.Game, error)

	// Delete removes the persisted record for an ended session.
	Delete(ctx context.Context, id string) error
}
