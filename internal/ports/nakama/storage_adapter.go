package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"holdem/internal/domain"
	"holdem/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// StorageClient is the slice of runtime.NakamaModule the repository needs.
type StorageClient interface {
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

// persistedGame is the storage form of a session. Cards are stored in their
// string encoding so records stay readable in the Nakama console.
type persistedGame struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Active        bool              `json:"active"`
	SmallBlind    int64             `json:"small_blind"`
	BigBlind      int64             `json:"big_blind"`
	StartingChips int64             `json:"starting_chips"`
	Phase         string            `json:"phase"`
	CreatedBy     string            `json:"created_by"`
	Players       []persistedPlayer `json:"players"`
	Board         string            `json:"board"`
	Deck          string            `json:"deck"`
}

type persistedPlayer struct {
	UserID  string `json:"user_id"`
	Chips   int64  `json:"chips"`
	Seat    int    `json:"seat"`
	IsAdmin bool   `json:"is_admin"`
	Hand    string `json:"hand"`
}

// NakamaGameRepository implements ports.GameRepository over Nakama storage.
// Records are system-owned so clients can never read deck order.
type NakamaGameRepository struct {
	nk StorageClient
}

// NewNakamaGameRepository creates a new game repository.
func NewNakamaGameRepository(nk StorageClient) *NakamaGameRepository {
	return &NakamaGameRepository{nk: nk}
}

// Save writes the full session state under the session id.
func (r *NakamaGameRepository) Save(ctx context.Context, game *domain.Game) error {
	record := persistedGame{
		ID:            game.ID,
		Name:          game.Name,
		Active:        game.Active,
		SmallBlind:    game.SmallBlind,
		BigBlind:      game.BigBlind,
		StartingChips: game.StartingChips,
		Phase:         string(game.Phase),
		CreatedBy:     game.CreatedBy,
		Board:         domain.EncodeCards(game.Board),
	}
	if game.Deck != nil {
		record.Deck = game.Deck.Encode()
	}
	record.Players = make([]persistedPlayer, 0, len(game.Players))
	for _, p := range game.Players {
		record.Players = append(record.Players, persistedPlayer{
			UserID:  p.UserID,
			Chips:   p.Chips,
			Seat:    p.Seat,
			IsAdmin: p.IsAdmin,
			Hand:    domain.EncodeCards(p.Hand),
		})
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal game %s: %w", game.ID, err)
	}

	_, err = r.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      gameCollection,
			Key:             game.ID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write game %s: %w", game.ID, err)
	}
	return nil
}

// Load reconstructs a session from storage.
func (r *NakamaGameRepository) Load(ctx context.Context, id string) (*domain.Game, error) {
	objects, err := r.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: gameCollection, Key: id},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read game %s: %w", id, err)
	}
	if len(objects) == 0 {
		return nil, &domain.NotFoundError{Kind: "game", ID: id}
	}

	var record persistedGame
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game %s: %w", id, err)
	}

	game := &domain.Game{
		ID:            record.ID,
		Name:          record.Name,
		Active:        record.Active,
		SmallBlind:    record.SmallBlind,
		BigBlind:      record.BigBlind,
		StartingChips: record.StartingChips,
		Phase:         domain.Phase(record.Phase),
		CreatedBy:     record.CreatedBy,
	}
	if game.Board, err = domain.DecodeCards(record.Board); err != nil {
		return nil, err
	}
	if record.Deck != "" {
		if game.Deck, err = domain.DecodeDeck(record.Deck, nil); err != nil {
			return nil, err
		}
	}
	game.Players = make([]*domain.Player, 0, len(record.Players))
	for _, p := range record.Players {
		hand, err := domain.DecodeCards(p.Hand)
		if err != nil {
			return nil, err
		}
		game.Players = append(game.Players, &domain.Player{
			UserID:  p.UserID,
			Chips:   p.Chips,
			Seat:    p.Seat,
			IsAdmin: p.IsAdmin,
			Hand:    hand,
		})
	}
	return game, nil
}

// Delete removes the persisted record for a session.
func (r *NakamaGameRepository) Delete(ctx context.Context, id string) error {
	err := r.nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: gameCollection, Key: id},
	})
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", id, err)
	}
	return nil
}

var _ ports.GameRepository = (*NakamaGameRepository)(nil)
