package ports

import "context"

// WalletUpdate represents a single bankroll change for a user.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface for managing player bankrolls. Table
// stacks live inside a session; the bankroll is the durable balance players
// buy in from.
type EconomyPort interface {
	// GetBalance retrieves the current bankroll for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies multiple bankroll changes.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
