package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"holdem/internal/app"
	"holdem/internal/config"
	"holdem/internal/domain"
	"holdem/internal/ports"
	"holdem/internal/rooms"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Handlers owns the wiring between Nakama RPCs and the session core. One
// instance is shared by all RPCs and the match handler.
type Handlers struct {
	Directory *rooms.Directory
	Service   *app.Service
	Repo      ports.GameRepository
	Tickets   *app.TicketService
	Economy   ports.EconomyPort
}

// RegisterRPCs registers the room and session RPCs with the runtime.
func (h *Handlers) RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcCreateRoom:    h.RpcCreateRoom,
		RpcListRooms:     h.RpcListRooms,
		RpcRoomState:     h.RpcRoomState,
		RpcRemoveRoom:    h.RpcRemoveRoom,
		RpcRoomTicket:    h.RpcRoomTicket,
		RpcStartGame:     h.RpcStartGame,
		RpcDealUserCards: h.RpcDealUserCards,
		RpcDealFlop:      h.RpcDealFlop,
		RpcDealTurn:      h.RpcDealTurn,
		RpcDealRiver:     h.RpcDealRiver,
		RpcSitUser:       h.RpcSitUser,
		RpcStandUser:     h.RpcStandUser,
		RpcSetGameAdmin:  h.RpcSetGameAdmin,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

// rpcError maps core errors onto gRPC status codes the Nakama client surfaces.
func rpcError(err error) error {
	var (
		notFound   *domain.NotFoundError
		notAuth    *domain.NotAuthorizedError
		transition *domain.InvalidTransitionError
		tooMany    *domain.TooManyPlayersError
		blinds     *domain.InvalidBlindsError
		malformed  *domain.MalformedDeckError
		shortDeck  *domain.InsufficientCardsError
	)
	switch {
	case errors.As(err, &notFound):
		return runtime.NewError(err.Error(), 5) // NOT_FOUND
	case errors.As(err, &notAuth):
		return runtime.NewError(err.Error(), 7) // PERMISSION_DENIED
	case errors.As(err, &transition), errors.As(err, &shortDeck):
		return runtime.NewError(err.Error(), 9) // FAILED_PRECONDITION
	case errors.As(err, &tooMany), errors.As(err, &blinds),
		errors.Is(err, app.ErrInvalidStartingChips), errors.Is(err, app.ErrInvalidSeat),
		errors.Is(err, domain.ErrDuplicateIdentity), errors.Is(err, domain.ErrSeatOccupied):
		return runtime.NewError(err.Error(), 3) // INVALID_ARGUMENT
	case errors.As(err, &malformed):
		return runtime.NewError(err.Error(), 13) // INTERNAL
	default:
		return runtime.NewError(err.Error(), 13)
	}
}

func callerID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("no user session", 16) // UNAUTHENTICATED
	}
	return userID, nil
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type createRoomResponse struct {
	RoomID  string `json:"room_id"`
	MatchID string `json:"match_id,omitempty"`
	Name    string `json:"name"`
	Phase   string `json:"phase"`
}

// RpcCreateRoom registers a new room and spins up its authoritative match.
func (h *Handlers) RpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	var req createRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}
	if req.Name == "" {
		return "", runtime.NewError("room name is required", 3)
	}

	snap := h.Directory.Create(req.Name, userID)
	resp := createRoomResponse{RoomID: snap.ID, Name: snap.Name, Phase: string(snap.Phase)}

	if nk != nil {
		matchID, err := nk.MatchCreate(ctx, MatchNameHoldem, map[string]interface{}{"room_id": snap.ID})
		if err != nil {
			logger.Error("RpcCreateRoom [User:%s]: Failed to create match for room %s: %v", userID, snap.ID, err)
			_ = h.Directory.Remove(snap.ID)
			return "", rpcError(err)
		}
		resp.MatchID = matchID
	}

	logger.Info("RpcCreateRoom [User:%s]: Created room %s (%s)", userID, snap.ID, snap.Name)
	out, err := json.Marshal(resp)
	if err != nil {
		return "", rpcError(err)
	}
	return string(out), nil
}

type listRoomsResponse struct {
	Rooms []RoomState `json:"rooms"`
}

// RpcListRooms returns a spectator view of every live room.
func (h *Handlers) RpcListRooms(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if _, err := callerID(ctx); err != nil {
		return "", err
	}

	snaps := h.Directory.List()
	resp := listRoomsResponse{Rooms: make([]RoomState, 0, len(snaps))}
	for _, snap := range snaps {
		resp.Rooms = append(resp.Rooms, toRoomState(snap, ""))
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return "", rpcError(err)
	}
	return string(out), nil
}

type roomRequest struct {
	RoomID string `json:"room_id"`
}

// RpcRoomState returns the caller's view of a room, restoring it from
// storage when the directory lost it to a restart.
func (h *Handlers) RpcRoomState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	req, err := parseRoomRequest(payload)
	if err != nil {
		return "", err
	}

	snap, err := h.roomSnapshot(ctx, logger, req.RoomID)
	if err != nil {
		return "", rpcError(err)
	}

	view := toRoomState(snap, userID)
	if h.Economy != nil {
		if balance, err := h.Economy.GetBalance(ctx, userID); err == nil {
			view.Bankroll = balance
		} else {
			logger.Warn("RpcRoomState: Failed to read bankroll for %s: %v", userID, err)
		}
	}

	out, err := json.Marshal(view)
	if err != nil {
		return "", rpcError(err)
	}
	return string(out), nil
}

// roomSnapshot reads a room, falling back to persisted state for rooms the
// in-memory directory no longer holds.
func (h *Handlers) roomSnapshot(ctx context.Context, logger runtime.Logger, roomID string) (rooms.Snapshot, error) {
	snap, err := h.Directory.Snapshot(roomID)
	if err == nil {
		return snap, nil
	}

	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || h.Repo == nil {
		return rooms.Snapshot{}, err
	}

	game, loadErr := h.Repo.Load(ctx, roomID)
	if loadErr != nil {
		return rooms.Snapshot{}, loadErr
	}
	logger.Info("Restored room %s from storage", roomID)
	return h.Directory.Restore(game).Snapshot(), nil
}

// RpcRemoveRoom tears down a room. Creator only; the persisted record is
// removed with it.
func (h *Handlers) RpcRemoveRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	req, err := parseRoomRequest(payload)
	if err != nil {
		return "", err
	}

	snap, err := h.Directory.Snapshot(req.RoomID)
	if err != nil {
		return "", rpcError(err)
	}
	if snap.CreatedBy != userID {
		return "", rpcError(&domain.NotAuthorizedError{UserID: userID, Op: "remove_room"})
	}

	if err := h.Directory.Remove(req.RoomID); err != nil {
		return "", rpcError(err)
	}
	if h.Repo != nil {
		if err := h.Repo.Delete(ctx, req.RoomID); err != nil {
			logger.Warn("RpcRemoveRoom: Failed to delete stored game %s: %v", req.RoomID, err)
		}
	}
	h.settleStacks(ctx, logger, snap)
	logger.Info("RpcRemoveRoom [User:%s]: Removed room %s", userID, req.RoomID)
	return "{}", nil
}

// settleStacks credits table stacks back to player bankrolls when a room is
// torn down. Wallet updates are best effort; the teardown stands either way.
func (h *Handlers) settleStacks(ctx context.Context, logger runtime.Logger, snap rooms.Snapshot) {
	if h.Economy == nil {
		return
	}
	updates := make([]ports.WalletUpdate, 0, len(snap.Players))
	for _, p := range snap.Players {
		updates = append(updates, ports.WalletUpdate{
			UserID: p.UserID,
			Amount: p.Chips,
			Metadata: map[string]interface{}{
				"room_id": snap.ID,
				"reason":  "table_settlement",
			},
		})
	}
	if err := h.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to settle stacks for room %s: %v", snap.ID, err)
	}
}

// debitBuyIns charges each seated player's starting stack to their bankroll
// after a successful start.
func (h *Handlers) debitBuyIns(ctx context.Context, logger runtime.Logger, roomID string) {
	if h.Economy == nil {
		return
	}
	snap, err := h.Directory.Snapshot(roomID)
	if err != nil {
		logger.Error("Failed to snapshot room %s for buy-ins: %v", roomID, err)
		return
	}
	updates := make([]ports.WalletUpdate, 0, len(snap.Players))
	for _, p := range snap.Players {
		updates = append(updates, ports.WalletUpdate{
			UserID: p.UserID,
			Amount: -p.Chips,
			Metadata: map[string]interface{}{
				"room_id": snap.ID,
				"reason":  "table_buy_in",
			},
		})
	}
	if err := h.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to debit buy-ins for room %s: %v", snap.ID, err)
	}
}

type roomTicketRequest struct {
	RoomID string `json:"room_id"`
	Role   string `json:"role"`
}

type roomTicketResponse struct {
	Ticket string `json:"ticket"`
}

// RpcRoomTicket issues a signed entry ticket for a room. Seated players get
// the player role; anyone else may request a spectator ticket.
func (h *Handlers) RpcRoomTicket(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	var req roomTicketRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomID == "" {
		return "", runtime.NewError("room_id is required", 3)
	}
	if req.Role == "" {
		req.Role = app.TicketRoleSpectator
	}

	snap, err := h.Directory.Snapshot(req.RoomID)
	if err != nil {
		return "", rpcError(err)
	}
	if req.Role == app.TicketRolePlayer {
		seated := userID == snap.CreatedBy
		for _, p := range snap.Players {
			if p.UserID == userID {
				seated = true
				break
			}
		}
		if !seated {
			return "", rpcError(&domain.NotAuthorizedError{UserID: userID, Op: "room_ticket"})
		}
	}

	ticket, err := h.Tickets.IssueTicket(userID, req.RoomID, req.Role)
	if err != nil {
		return "", rpcError(err)
	}
	out, err := json.Marshal(roomTicketResponse{Ticket: ticket})
	if err != nil {
		return "", rpcError(err)
	}
	return string(out), nil
}

type startGameRequest struct {
	RoomID        string   `json:"room_id"`
	Identities    []string `json:"identities"`
	SmallBlind    int64    `json:"small_blind"`
	BigBlind      int64    `json:"big_blind"`
	StartingChips int64    `json:"starting_chips"`
	Tier          string   `json:"tier"`
}

// RpcStartGame starts the session in a room. Blinds may be given directly or
// resolved from a configured tier; chips default from config when omitted.
func (h *Handlers) RpcStartGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	var req startGameRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomID == "" {
		return "", runtime.NewError("room_id is required", 3)
	}

	if req.SmallBlind == 0 && req.BigBlind == 0 {
		if small, big, ok := config.BlindsForTier(req.Tier); ok {
			req.SmallBlind, req.BigBlind = small, big
		}
	}
	if req.StartingChips == 0 {
		if c := config.GetTableConfig(); c != nil {
			req.StartingChips = c.DefaultStartingChips
		}
	}

	out, err := h.transition(ctx, logger, req.RoomID, userID, func(g *domain.Game) (*domain.Game, []app.Event, error) {
		return h.Service.StartGame(ctx, g, userID, req.Identities, req.SmallBlind, req.BigBlind, req.StartingChips)
	})
	if err != nil {
		return "", err
	}
	h.debitBuyIns(ctx, logger, req.RoomID)
	return out, nil
}

// RpcDealUserCards deals hole cards to every seated player.
func (h *Handlers) RpcDealUserCards(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return h.dealRPC(ctx, logger, payload, h.Service.DealUserCards)
}

// RpcDealFlop deals the flop.
func (h *Handlers) RpcDealFlop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return h.dealRPC(ctx, logger, payload, h.Service.DealFlop)
}

// RpcDealTurn deals the turn.
func (h *Handlers) RpcDealTurn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return h.dealRPC(ctx, logger, payload, h.Service.DealTurn)
}

// RpcDealRiver deals the river.
func (h *Handlers) RpcDealRiver(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return h.dealRPC(ctx, logger, payload, h.Service.DealRiver)
}

func (h *Handlers) dealRPC(ctx context.Context, logger runtime.Logger, payload string, op func(context.Context, *domain.Game, string) (*domain.Game, []app.Event, error)) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	req, err := parseRoomRequest(payload)
	if err != nil {
		return "", err
	}
	return h.transition(ctx, logger, req.RoomID, userID, func(g *domain.Game) (*domain.Game, []app.Event, error) {
		return op(ctx, g, userID)
	})
}

type seatRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Seat   int    `json:"seat"`
}

// RpcSitUser reserves a seat before the game starts. The user_id defaults to
// the caller; only the room creator may seat someone else.
func (h *Handlers) RpcSitUser(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	var req seatRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomID == "" {
		return "", runtime.NewError("room_id is required", 3)
	}
	if req.UserID == "" {
		req.UserID = userID
	}

	return h.transition(ctx, logger, req.RoomID, userID, func(g *domain.Game) (*domain.Game, []app.Event, error) {
		return h.Service.SitUser(ctx, g, userID, req.UserID, req.Seat)
	})
}

// RpcStandUser releases a seat before the game starts.
func (h *Handlers) RpcStandUser(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	var req seatRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomID == "" {
		return "", runtime.NewError("room_id is required", 3)
	}
	if req.UserID == "" {
		req.UserID = userID
	}

	return h.transition(ctx, logger, req.RoomID, userID, func(g *domain.Game) (*domain.Game, []app.Event, error) {
		return h.Service.StandUser(ctx, g, userID, req.UserID)
	})
}

// RpcSetGameAdmin hands the admin flag to another seated player.
func (h *Handlers) RpcSetGameAdmin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	var req seatRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomID == "" || req.UserID == "" {
		return "", runtime.NewError("room_id and user_id are required", 3)
	}

	return h.transition(ctx, logger, req.RoomID, userID, func(g *domain.Game) (*domain.Game, []app.Event, error) {
		return h.Service.SetGameAdmin(ctx, g, userID, req.UserID)
	})
}

func parseRoomRequest(payload string) (roomRequest, error) {
	var req roomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomID == "" {
		return roomRequest{}, runtime.NewError("room_id is required", 3)
	}
	return req, nil
}

// transition runs one session transition under the room lock and returns the
// caller's updated view of the room.
func (h *Handlers) transition(ctx context.Context, logger runtime.Logger, roomID, userID string, fn func(*domain.Game) (*domain.Game, []app.Event, error)) (string, error) {
	room, err := h.Directory.Get(roomID)
	if err != nil {
		return "", rpcError(err)
	}

	if _, err := room.Update(fn); err != nil {
		logger.Warn("Transition failed in room %s for user %s: %v", roomID, userID, err)
		return "", rpcError(err)
	}

	out, err := json.Marshal(toRoomState(room.Snapshot(), userID))
	if err != nil {
		return "", rpcError(err)
	}
	return string(out), nil
}
