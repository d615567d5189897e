package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// BlindTier is a named small/big blind pairing tables can be created with.
type BlindTier struct {
	ID         string `json:"id"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
}

// TableConfig holds table-level tuning for the engine.
type TableConfig struct {
	// Capacity is the maximum number of seats at one table.
	Capacity int `json:"capacity"`
	// DefaultStartingChips is the stack assigned when a start request
	// omits one.
	DefaultStartingChips int64       `json:"default_starting_chips"`
	DefaultTier          string      `json:"default_tier"`
	Tiers                []BlindTier `json:"tiers"`
	// TicketTTLSeconds bounds the lifetime of signed room tickets.
	TicketTTLSeconds int `json:"ticket_ttl_seconds"`
}

const (
	defaultCapacity      = 10
	defaultStartingChips = 20000
	defaultTicketTTL     = 300
)

var (
	cfg      *TableConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadTableConfig loads table configuration from the given JSON file, then
// applies environment overrides. A local .env file is honored when present.
func LoadTableConfig(path string) error {
	loadOnce.Do(func() {
		_ = godotenv.Load()

		c := &TableConfig{
			Capacity:             defaultCapacity,
			DefaultStartingChips: defaultStartingChips,
			TicketTTLSeconds:     defaultTicketTTL,
		}

		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				loadErr = fmt.Errorf("failed to read table config: %w", err)
				return
			}
			if err := json.Unmarshal(data, c); err != nil {
				loadErr = fmt.Errorf("failed to unmarshal table config: %w", err)
				return
			}
		}

		applyEnvOverrides(c)

		if c.Capacity <= 0 {
			c.Capacity = defaultCapacity
		}
		cfg = c
	})
	return loadErr
}

func applyEnvOverrides(c *TableConfig) {
	if val := os.Getenv("HOLDEM_TABLE_CAPACITY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Capacity = i
		}
	}
	if val := os.Getenv("HOLDEM_DEFAULT_STARTING_CHIPS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.DefaultStartingChips = i
		}
	}
	if val := os.Getenv("HOLDEM_TICKET_TTL_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.TicketTTLSeconds = i
		}
	}
}

// GetTableConfig returns the global table configuration, or nil when not
// loaded.
func GetTableConfig() *TableConfig {
	return cfg
}

// TableCapacity returns the configured seat count, falling back to the
// default when config has not been loaded.
func TableCapacity() int {
	if cfg == nil {
		return defaultCapacity
	}
	return cfg.Capacity
}

// BlindsForTier returns the blinds for a tier ID, or the default tier's
// blinds when the ID is empty or unknown. ok is false when no tier matches.
func BlindsForTier(tierID string) (small, big int64, ok bool) {
	if cfg == nil {
		return 0, 0, false
	}

	target := tierID
	if target == "" {
		target = cfg.DefaultTier
	}

	for _, tier := range cfg.Tiers {
		if tier.ID == target {
			return tier.SmallBlind, tier.BigBlind, true
		}
	}
	for _, tier := range cfg.Tiers {
		if tier.ID == cfg.DefaultTier {
			return tier.SmallBlind, tier.BigBlind, true
		}
	}
	return 0, 0, false
}
