package app

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"holdem/internal/config"
	"holdem/internal/domain"
	"holdem/internal/ports"
)

var (
	ErrInvalidStartingChips = errors.New("starting chips must be positive")
	ErrInvalidSeat          = errors.New("seat index out of range")
)

// Service contains the session use-cases. Every transition validates against
// the current phase, mutates a clone of the session, persists the clone and
// only then hands it back, so failures never leave partial state behind.
type Service struct {
	rng      *rand.Rand
	repo     ports.GameRepository
	capacity int
}

// NewService constructs a Service with the provided repository and rng.
// rng may be nil to use a time-seeded default; repo may be nil for
// memory-only sessions. Table capacity comes from config.
func NewService(repo ports.GameRepository, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		rng:      rng,
		repo:     repo,
		capacity: config.TableCapacity(),
	}
}

// StartGame seats the confirmed identities, records blinds and stacks,
// initializes a fresh shuffled deck and moves the session to initialized.
// Only the session creator may start. Valid only from not_started.
func (s *Service) StartGame(ctx context.Context, game *domain.Game, actor string, identities []string, smallBlind, bigBlind, startingChips int64) (*domain.Game, []Event, error) {
	if game.Phase != domain.PhaseNotStarted {
		return nil, nil, &domain.InvalidTransitionError{Phase: game.Phase, Op: "start_game"}
	}
	if actor != game.CreatedBy {
		return nil, nil, &domain.NotAuthorizedError{UserID: actor, Op: "start_game"}
	}
	if smallBlind <= 0 || bigBlind < smallBlind {
		return nil, nil, &domain.InvalidBlindsError{SmallBlind: smallBlind, BigBlind: bigBlind}
	}
	if startingChips <= 0 {
		return nil, nil, ErrInvalidStartingChips
	}

	players, err := domain.SeatPlayers(identities, game.CreatedBy, startingChips, s.capacity)
	if err != nil {
		return nil, nil, err
	}

	next := game.Clone()
	next.SmallBlind = smallBlind
	next.BigBlind = bigBlind
	next.StartingChips = startingChips
	next.Players = players
	next.Board = nil
	next.Active = true

	deck := domain.NewDeck(s.rng)
	deck.Shuffle()
	next.Deck = deck
	next.Phase = domain.PhaseInitialized

	if err := s.persist(ctx, next); err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			GameID:        next.ID,
			Phase:         next.Phase,
			SmallBlind:    smallBlind,
			BigBlind:      bigBlind,
			StartingChips: startingChips,
			PlayerCount:   len(players),
		},
	}}
	return next, events, nil
}

// DealUserCards deals two hole cards to every seated player in seat order.
// Admin only; valid only from initialized.
func (s *Service) DealUserCards(ctx context.Context, game *domain.Game, actor string) (*domain.Game, []Event, error) {
	if game.Phase != domain.PhaseInitialized {
		return nil, nil, &domain.InvalidTransitionError{Phase: game.Phase, Op: "deal_user_cards"}
	}
	if err := s.requireAdmin(game, actor, "deal_user_cards"); err != nil {
		return nil, nil, err
	}

	next := game.Clone()
	events := make([]Event, 0, len(next.Players)+1)
	for _, p := range next.Players {
		hand, err := next.Deck.Deal(HoleCardsPerPlayer)
		if err != nil {
			return nil, nil, err
		}
		p.Hand = hand
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{UserID: p.UserID, Hand: hand},
			Recipients: []string{p.UserID},
		})
	}
	next.Phase = domain.PhaseUserCardsDealt

	if err := s.persist(ctx, next); err != nil {
		return nil, nil, err
	}

	events = append(events, Event{
		Kind:    EventUserCardsDealt,
		Payload: UserCardsDealtPayload{CardsRemaining: next.Deck.Remaining()},
	})
	return next, events, nil
}

// DealFlop deals the three flop cards. Admin only; valid only from
// user_cards_dealt.
func (s *Service) DealFlop(ctx context.Context, game *domain.Game, actor string) (*domain.Game, []Event, error) {
	return s.dealCommunity(ctx, game, actor, "deal_flop", domain.PhaseUserCardsDealt, domain.PhaseFlopDealt, FlopCardCount, EventFlopDealt)
}

// DealTurn deals the turn card. Admin only; valid only from flop_dealt.
func (s *Service) DealTurn(ctx context.Context, game *domain.Game, actor string) (*domain.Game, []Event, error) {
	return s.dealCommunity(ctx, game, actor, "deal_turn", domain.PhaseFlopDealt, domain.PhaseTurnDealt, TurnCardCount, EventTurnDealt)
}

// DealRiver deals the river card. Admin only; valid only from turn_dealt.
func (s *Service) DealRiver(ctx context.Context, game *domain.Game, actor string) (*domain.Game, []Event, error) {
	return s.dealCommunity(ctx, game, actor, "deal_river", domain.PhaseTurnDealt, domain.PhaseRiverDealt, RiverCardCount, EventRiverDealt)
}

func (s *Service) dealCommunity(ctx context.Context, game *domain.Game, actor, op string, from, to domain.Phase, count int, kind EventKind) (*domain.Game, []Event, error) {
	if game.Phase != from {
		return nil, nil, &domain.InvalidTransitionError{Phase: game.Phase, Op: op}
	}
	if err := s.requireAdmin(game, actor, op); err != nil {
		return nil, nil, err
	}

	next := game.Clone()
	cards, err := next.Deck.Deal(count)
	if err != nil {
		return nil, nil, err
	}
	next.Board = append(next.Board, cards...)
	next.Phase = to

	if err := s.persist(ctx, next); err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:    kind,
		Payload: CommunityDealtPayload{Cards: cards, Board: next.Board},
	}}
	return next, events, nil
}

// SitUser reserves a seat for an identity before the game starts. Users sit
// themselves; the creator may seat anyone.
func (s *Service) SitUser(ctx context.Context, game *domain.Game, actor, identity string, seat int) (*domain.Game, []Event, error) {
	if game.Phase != domain.PhaseNotStarted {
		return nil, nil, &domain.InvalidTransitionError{Phase: game.Phase, Op: "sit_user"}
	}
	if actor != identity && actor != game.CreatedBy {
		return nil, nil, &domain.NotAuthorizedError{UserID: actor, Op: "sit_user"}
	}
	if seat < 0 || seat >= s.capacity {
		return nil, nil, ErrInvalidSeat
	}
	if game.PlayerByID(identity) != nil {
		return nil, nil, domain.ErrDuplicateIdentity
	}
	for _, p := range game.Players {
		if p.Seat == seat {
			return nil, nil, domain.ErrSeatOccupied
		}
	}

	next := game.Clone()
	next.Players = append(next.Players, &domain.Player{
		UserID:  identity,
		Seat:    seat,
		IsAdmin: identity == game.CreatedBy && next.Admin() == nil,
	})

	if err := s.persist(ctx, next); err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:    EventPlayerSat,
		Payload: PlayerSatPayload{UserID: identity, Seat: seat},
	}}
	return next, events, nil
}

// StandUser releases an identity's seat before the game starts. Users stand
// themselves; the creator may remove anyone.
func (s *Service) StandUser(ctx context.Context, game *domain.Game, actor, identity string) (*domain.Game, []Event, error) {
	if game.Phase != domain.PhaseNotStarted {
		return nil, nil, &domain.InvalidTransitionError{Phase: game.Phase, Op: "stand_user"}
	}
	if actor != identity && actor != game.CreatedBy {
		return nil, nil, &domain.NotAuthorizedError{UserID: actor, Op: "stand_user"}
	}
	if game.PlayerByID(identity) == nil {
		return nil, nil, &domain.NotFoundError{Kind: "identity", ID: identity}
	}

	next := game.Clone()
	players := next.Players[:0]
	for _, p := range next.Players {
		if p.UserID != identity {
			players = append(players, p)
		}
	}
	next.Players = players

	if err := s.persist(ctx, next); err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:    EventPlayerStood,
		Payload: PlayerStoodPayload{UserID: identity},
	}}
	return next, events, nil
}

// SetGameAdmin reassigns the admin flag to a currently seated player. Only
// the current admin (or the creator while no admin is seated) may reassign.
func (s *Service) SetGameAdmin(ctx context.Context, game *domain.Game, actor, identity string) (*domain.Game, []Event, error) {
	admin := game.Admin()
	allowed := actor == game.CreatedBy
	if admin != nil {
		allowed = actor == admin.UserID
	}
	if !allowed {
		return nil, nil, &domain.NotAuthorizedError{UserID: actor, Op: "set_game_admin"}
	}
	if game.PlayerByID(identity) == nil {
		return nil, nil, &domain.NotFoundError{Kind: "identity", ID: identity}
	}

	next := game.Clone()
	for _, p := range next.Players {
		p.IsAdmin = p.UserID == identity
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:    EventAdminChanged,
		Payload: AdminChangedPayload{UserID: identity},
	}}
	return next, events, nil
}

func (s *Service) requireAdmin(game *domain.Game, actor, op string) error {
	admin := game.Admin()
	if admin == nil || admin.UserID != actor {
		return &domain.NotAuthorizedError{UserID: actor, Op: op}
	}
	return nil
}

func (s *Service) persist(ctx context.Context, game *domain.Game) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Save(ctx, game)
}
