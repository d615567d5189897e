package nakama

import (
	"context"
	"database/sql"
	"time"

	"holdem/internal/app"
	"holdem/internal/config"
	"holdem/internal/rooms"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	if err := config.LoadTableConfig(env["holdem_table_config"]); err != nil {
		return err
	}
	cfg := config.GetTableConfig()

	secret := env["holdem_ticket_secret"]
	issuer := env["holdem_ticket_issuer"]
	if secret == "" {
		// Keep local runs working; production sets the env var.
		secret = "dev-ticket-secret"
		logger.Warn("holdem_ticket_secret not set, using development default.")
	}
	if issuer == "" {
		issuer = "holdem"
	}

	handlers := &Handlers{
		Directory: rooms.NewDirectory(),
		Repo:      NewNakamaGameRepository(nk),
		Tickets:   app.NewTicketService(secret, issuer, time.Duration(cfg.TicketTTLSeconds)*time.Second),
		Economy:   NewNakamaEconomyAdapter(nk),
	}
	handlers.Service = app.NewService(handlers.Repo, nil)

	if err := handlers.RegisterRPCs(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameHoldem, handlers.NewMatch); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	logger.Info("Holdem Go module loaded. Table capacity: %d", cfg.Capacity)
	return nil
}
