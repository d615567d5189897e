package main

import (
	"context"
	"database/sql"

	"holdem/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// main is never called; Nakama loads this package as a plugin and invokes
// InitModule. It exists only so plain `go build` accepts the main package.
func main() {}

// InitModule proxies Nakama initialization to the nakama adapter package.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}
