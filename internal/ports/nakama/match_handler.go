package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"holdem/internal/app"
	"holdem/internal/domain"
	"holdem/internal/rooms"

	"github.com/heroiclabs/nakama-common/runtime"
)

// matchLabel is the searchable label Nakama indexes for each table match.
type matchLabel struct {
	RoomID string `json:"room_id"`
	Open   int    `json:"open"`
	Phase  string `json:"phase"`
}

// MatchState holds the per-match runtime state. The session itself lives in
// the room directory; the match tracks presences and the last version it
// broadcast.
type MatchState struct {
	RoomID      string
	Presences   map[string]runtime.Presence
	Spectators  map[string]bool
	LastVersion int64
}

type matchHandler struct {
	h *Handlers
}

// NewMatch is the factory function registered with Nakama.
func (h *Handlers) NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{h: h}, nil
}

// MatchInit binds the match to the room named in its creation params.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	roomID, _ := params["room_id"].(string)
	if roomID == "" {
		logger.Error("MatchInit: Missing room_id param.")
		return nil, 0, ""
	}

	snap, err := mh.h.Directory.Snapshot(roomID)
	if err != nil {
		logger.Error("MatchInit: Room %s not found: %v", roomID, err)
		return nil, 0, ""
	}

	state := &MatchState{
		RoomID:      roomID,
		Presences:   make(map[string]runtime.Presence),
		Spectators:  make(map[string]bool),
		LastVersion: snap.Version,
	}

	tickRate := 2
	return state, tickRate, mh.label(snap)
}

func (mh *matchHandler) label(snap rooms.Snapshot) string {
	open := 0
	if snap.Phase == domain.PhaseNotStarted {
		open = 1
	}
	bytes, _ := json.Marshal(matchLabel{RoomID: snap.ID, Open: open, Phase: string(snap.Phase)})
	return string(bytes)
}

// MatchJoinAttempt admits a presence, verifying the entry ticket when one is
// offered. A ticket for another room or another user is rejected.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if ticket := metadata["ticket"]; ticket != "" {
		claims, err := mh.h.Tickets.VerifyTicket(ticket)
		if err != nil {
			logger.Warn("MatchJoinAttempt: Bad ticket from %s: %v", presence.GetUserId(), err)
			return matchState, false, "invalid ticket"
		}
		if claims.RoomID != matchState.RoomID || claims.UserID != presence.GetUserId() {
			return matchState, false, "ticket not valid for this table"
		}
		if claims.Role == app.TicketRoleSpectator {
			matchState.Spectators[presence.GetUserId()] = true
		}
	}

	return matchState, true, ""
}

// MatchJoin sends each joiner the current room view plus their private hole
// cards when they hold any.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	snap, err := mh.h.Directory.Snapshot(matchState.RoomID)
	if err != nil {
		logger.Error("MatchJoin: Room %s lost: %v", matchState.RoomID, err)
		return nil
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		mh.sendSnapshot(snap, p, dispatcher, logger)
		mh.sendHoleCards(snap, p, dispatcher, logger)
	}
	return matchState
}

// MatchLeave drops presences and ends the match once the table is empty.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		delete(matchState.Spectators, p.GetUserId())
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Table %s empty, terminating match.", matchState.RoomID)
		return nil
	}
	return matchState
}

// MatchLoop applies queued commands to the session, then broadcasts the new
// room view whenever the version moved, whether the change came through the
// match or through an RPC.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	room, err := mh.h.Directory.Get(matchState.RoomID)
	if err != nil {
		logger.Info("MatchLoop: Room %s removed, terminating match.", matchState.RoomID)
		return nil
	}

	for _, msg := range messages {
		mh.handleCommand(ctx, matchState, room, dispatcher, logger, msg)
	}

	snap := room.Snapshot()
	if snap.Version != matchState.LastVersion {
		matchState.LastVersion = snap.Version
		mh.broadcastSnapshot(matchState, snap, dispatcher, logger)
		if err := dispatcher.MatchLabelUpdate(mh.label(snap)); err != nil {
			logger.Error("MatchLoop: Failed to update label: %v", err)
		}
	}

	return matchState
}

type commandPayload struct {
	Identities    []string `json:"identities"`
	SmallBlind    int64    `json:"small_blind"`
	BigBlind      int64    `json:"big_blind"`
	StartingChips int64    `json:"starting_chips"`
	UserID        string   `json:"user_id"`
	Seat          int      `json:"seat"`
}

func (mh *matchHandler) handleCommand(ctx context.Context, state *MatchState, room *rooms.Room, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Spectators[senderID] {
		mh.sendError(state, dispatcher, logger, senderID, msg.GetOpCode(), "spectators cannot act")
		return
	}

	var cmd commandPayload
	if len(msg.GetData()) > 0 {
		if err := json.Unmarshal(msg.GetData(), &cmd); err != nil {
			logger.Warn("MatchLoop: Invalid command payload from %s: %v", senderID, err)
			mh.sendError(state, dispatcher, logger, senderID, msg.GetOpCode(), "invalid payload")
			return
		}
	}
	if cmd.UserID == "" {
		cmd.UserID = senderID
	}

	svc := mh.h.Service
	var transition func(g *domain.Game) (*domain.Game, []app.Event, error)
	switch msg.GetOpCode() {
	case OpStartGame:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.StartGame(ctx, g, senderID, cmd.Identities, cmd.SmallBlind, cmd.BigBlind, cmd.StartingChips)
		}
	case OpDealUserCards:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.DealUserCards(ctx, g, senderID)
		}
	case OpDealFlop:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.DealFlop(ctx, g, senderID)
		}
	case OpDealTurn:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.DealTurn(ctx, g, senderID)
		}
	case OpDealRiver:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.DealRiver(ctx, g, senderID)
		}
	case OpSitUser:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.SitUser(ctx, g, senderID, cmd.UserID, cmd.Seat)
		}
	case OpStandUser:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.StandUser(ctx, g, senderID, cmd.UserID)
		}
	case OpSetGameAdmin:
		transition = func(g *domain.Game) (*domain.Game, []app.Event, error) {
			return svc.SetGameAdmin(ctx, g, senderID, cmd.UserID)
		}
	default:
		logger.Warn("MatchLoop: Unknown opcode %d from %s", msg.GetOpCode(), senderID)
		return
	}

	if _, err := room.Update(transition); err != nil {
		logger.Warn("MatchLoop: Command %d from %s rejected: %v", msg.GetOpCode(), senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, msg.GetOpCode(), err.Error())
		return
	}
	if msg.GetOpCode() == OpStartGame {
		mh.h.debitBuyIns(ctx, logger, state.RoomID)
	}
}

// broadcastSnapshot sends every presence its own view of the room. Hole
// cards never cross the wire to other players, so each view is targeted.
func (mh *matchHandler) broadcastSnapshot(state *MatchState, snap rooms.Snapshot, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, p := range state.Presences {
		mh.sendSnapshot(snap, p, dispatcher, logger)
		mh.sendHoleCards(snap, p, dispatcher, logger)
	}
}

func (mh *matchHandler) sendSnapshot(snap rooms.Snapshot, to runtime.Presence, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	bytes, err := json.Marshal(toRoomState(snap, to.GetUserId()))
	if err != nil {
		logger.Error("Failed to marshal room snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpRoomSnapshot, bytes, []runtime.Presence{to}, nil, true)
}

func (mh *matchHandler) sendHoleCards(snap rooms.Snapshot, to runtime.Presence, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, player := range snap.Players {
		if player.UserID != to.GetUserId() || len(player.Hand) == 0 {
			continue
		}
		bytes, err := json.Marshal(HoleCards{RoomID: snap.ID, Hand: cardTokens(player.Hand)})
		if err != nil {
			logger.Error("Failed to marshal hole cards: %v", err)
			return
		}
		dispatcher.BroadcastMessage(OpHoleCards, bytes, []runtime.Presence{to}, nil, true)
		return
	}
}

// sendError reports a rejected command to its sender only.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, op int64, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	bytes, err := json.Marshal(GameError{Op: opName(op), Message: message})
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func opName(op int64) string {
	switch op {
	case OpStartGame:
		return "start_game"
	case OpDealUserCards:
		return "deal_user_cards"
	case OpDealFlop:
		return "deal_flop"
	case OpDealTurn:
		return "deal_turn"
	case OpDealRiver:
		return "deal_river"
	case OpSitUser:
		return "sit_user"
	case OpStandUser:
		return "stand_user"
	case OpSetGameAdmin:
		return "set_game_admin"
	default:
		return "unknown"
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
