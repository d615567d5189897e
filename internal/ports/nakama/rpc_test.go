package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"holdem/internal/app"
	"holdem/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

func ctxWithUser(userID string) context.Context {
	return context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, userID)
}

func createRoom(t *testing.T, h *Handlers, userID, name string) createRoomResponse {
	t.Helper()
	out, err := h.RpcCreateRoom(ctxWithUser(userID), noopLogger{}, nil, nil, `{"name":"`+name+`"}`)
	if err != nil {
		t.Fatalf("RpcCreateRoom error: %v", err)
	}
	var resp createRoomResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("create response: %v", err)
	}
	return resp
}

func runtimeCode(t *testing.T, err error) int {
	t.Helper()
	rtErr, ok := err.(*runtime.Error)
	if !ok {
		t.Fatalf("error = %T (%v), want *runtime.Error", err, err)
	}
	return int(rtErr.Code)
}

func TestRpcCreateRoomValidation(t *testing.T) {
	h := newTestHandlers()

	if _, err := h.RpcCreateRoom(context.Background(), noopLogger{}, nil, nil, `{"name":"x"}`); err == nil {
		t.Fatal("expected rejection without a user session")
	}
	if _, err := h.RpcCreateRoom(ctxWithUser("u0"), noopLogger{}, nil, nil, `{}`); err == nil {
		t.Fatal("expected rejection without a room name")
	}
	if _, err := h.RpcCreateRoom(ctxWithUser("u0"), noopLogger{}, nil, nil, `garbage`); err == nil {
		t.Fatal("expected rejection of malformed payload")
	}
}

func TestRpcFullDealSequence(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")
	ctx := ctxWithUser("u0")

	start, _ := json.Marshal(startGameRequest{
		RoomID:        room.RoomID,
		Identities:    []string{"u0", "u1", "u2"},
		SmallBlind:    500,
		BigBlind:      1000,
		StartingChips: 20000,
	})
	out, err := h.RpcStartGame(ctx, noopLogger{}, nil, nil, string(start))
	if err != nil {
		t.Fatalf("RpcStartGame error: %v", err)
	}
	var view RoomState
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("start response: %v", err)
	}
	if view.Phase != string(domain.PhaseInitialized) || len(view.Players) != 3 {
		t.Fatalf("view = phase %s players %d", view.Phase, len(view.Players))
	}

	roomPayload := `{"room_id":"` + room.RoomID + `"}`
	steps := []struct {
		name      string
		rpc       func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error)
		wantPhase domain.Phase
		wantBoard int
	}{
		{"UserCards", h.RpcDealUserCards, domain.PhaseUserCardsDealt, 0},
		{"Flop", h.RpcDealFlop, domain.PhaseFlopDealt, 3},
		{"Turn", h.RpcDealTurn, domain.PhaseTurnDealt, 4},
		{"River", h.RpcDealRiver, domain.PhaseRiverDealt, 5},
	}
	for _, step := range steps {
		out, err := step.rpc(ctx, noopLogger{}, nil, nil, roomPayload)
		if err != nil {
			t.Fatalf("%s error: %v", step.name, err)
		}
		if err := json.Unmarshal([]byte(out), &view); err != nil {
			t.Fatalf("%s response: %v", step.name, err)
		}
		if view.Phase != string(step.wantPhase) || len(view.Board) != step.wantBoard {
			t.Fatalf("%s: phase %s board %d, want %s/%d", step.name, view.Phase, len(view.Board), step.wantPhase, step.wantBoard)
		}
	}

	// The caller sees only their own hole cards in the final view.
	for _, p := range view.Players {
		if p.UserID == "u0" && len(p.Hand) != app.HoleCardsPerPlayer {
			t.Fatalf("own hand = %d cards", len(p.Hand))
		}
		if p.UserID != "u0" && len(p.Hand) != 0 {
			t.Fatalf("hand of %s leaked to caller", p.UserID)
		}
	}
}

func TestRpcErrorCodes(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")
	roomPayload := `{"room_id":"` + room.RoomID + `"}`

	tests := []struct {
		name     string
		run      func() error
		wantCode int
	}{
		{
			name: "UnknownRoomIsNotFound",
			run: func() error {
				_, err := h.RpcRoomState(ctxWithUser("u0"), noopLogger{}, nil, nil, `{"room_id":"missing"}`)
				return err
			},
			wantCode: 5,
		},
		{
			name: "NonCreatorStartIsPermissionDenied",
			run: func() error {
				payload, _ := json.Marshal(startGameRequest{RoomID: room.RoomID, Identities: []string{"u0", "u1"}, SmallBlind: 1, BigBlind: 2, StartingChips: 100})
				_, err := h.RpcStartGame(ctxWithUser("u1"), noopLogger{}, nil, nil, string(payload))
				return err
			},
			wantCode: 7,
		},
		{
			name: "EarlyFlopIsFailedPrecondition",
			run: func() error {
				_, err := h.RpcDealFlop(ctxWithUser("u0"), noopLogger{}, nil, nil, roomPayload)
				return err
			},
			wantCode: 9,
		},
		{
			name: "BadBlindsAreInvalidArgument",
			run: func() error {
				payload, _ := json.Marshal(startGameRequest{RoomID: room.RoomID, Identities: []string{"u0", "u1"}, SmallBlind: 1000, BigBlind: 500, StartingChips: 100})
				_, err := h.RpcStartGame(ctxWithUser("u0"), noopLogger{}, nil, nil, string(payload))
				return err
			},
			wantCode: 3,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := test.run()
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := runtimeCode(t, err); got != test.wantCode {
				t.Fatalf("code = %d, want %d", got, test.wantCode)
			}
		})
	}
}

func TestRpcSitStandAndAdmin(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")

	sit := func(ctx context.Context, userID string, seat int) (RoomState, error) {
		payload, _ := json.Marshal(seatRequest{RoomID: room.RoomID, UserID: userID, Seat: seat})
		out, err := h.RpcSitUser(ctx, noopLogger{}, nil, nil, string(payload))
		if err != nil {
			return RoomState{}, err
		}
		var view RoomState
		if err := json.Unmarshal([]byte(out), &view); err != nil {
			return RoomState{}, err
		}
		return view, nil
	}

	if _, err := sit(ctxWithUser("u0"), "", 0); err != nil {
		t.Fatalf("creator sit error: %v", err)
	}
	view, err := sit(ctxWithUser("u1"), "", 3)
	if err != nil {
		t.Fatalf("self sit error: %v", err)
	}
	if len(view.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(view.Players))
	}

	// u1 may not seat a third party.
	if _, err := sit(ctxWithUser("u1"), "u2", 5); err == nil {
		t.Fatal("expected rejection when seating another user")
	} else if got := runtimeCode(t, err); got != 7 {
		t.Fatalf("code = %d, want 7", got)
	}

	// Creator hands the admin flag to u1.
	payload, _ := json.Marshal(seatRequest{RoomID: room.RoomID, UserID: "u1"})
	out, err := h.RpcSetGameAdmin(ctxWithUser("u0"), noopLogger{}, nil, nil, string(payload))
	if err != nil {
		t.Fatalf("RpcSetGameAdmin error: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("admin response: %v", err)
	}
	for _, p := range view.Players {
		if p.IsAdmin != (p.UserID == "u1") {
			t.Fatalf("admin flag on %s = %t", p.UserID, p.IsAdmin)
		}
	}

	// u1 stands; their seat frees up.
	standPayload, _ := json.Marshal(seatRequest{RoomID: room.RoomID})
	out, err = h.RpcStandUser(ctxWithUser("u1"), noopLogger{}, nil, nil, string(standPayload))
	if err != nil {
		t.Fatalf("RpcStandUser error: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("stand response: %v", err)
	}
	if len(view.Players) != 1 || view.Players[0].UserID != "u0" {
		t.Fatalf("players after stand = %+v", view.Players)
	}
}

func TestRpcStartGameDebitsBuyIns(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")

	start, _ := json.Marshal(startGameRequest{
		RoomID:        room.RoomID,
		Identities:    []string{"u0", "u1"},
		SmallBlind:    500,
		BigBlind:      1000,
		StartingChips: 20000,
	})
	if _, err := h.RpcStartGame(ctxWithUser("u0"), noopLogger{}, nil, nil, string(start)); err != nil {
		t.Fatalf("RpcStartGame error: %v", err)
	}

	debits := h.Economy.(*mockEconomy).byReason("table_buy_in")
	if debits["u0"] != -20000 || debits["u1"] != -20000 {
		t.Fatalf("buy-in debits = %v, want -20000 each", debits)
	}
}

func TestRpcRemoveRoomSettlesStacks(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")

	start, _ := json.Marshal(startGameRequest{
		RoomID:        room.RoomID,
		Identities:    []string{"u0", "u1"},
		SmallBlind:    500,
		BigBlind:      1000,
		StartingChips: 20000,
	})
	if _, err := h.RpcStartGame(ctxWithUser("u0"), noopLogger{}, nil, nil, string(start)); err != nil {
		t.Fatalf("RpcStartGame error: %v", err)
	}
	if _, err := h.RpcRemoveRoom(ctxWithUser("u0"), noopLogger{}, nil, nil, `{"room_id":"`+room.RoomID+`"}`); err != nil {
		t.Fatalf("RpcRemoveRoom error: %v", err)
	}

	credits := h.Economy.(*mockEconomy).byReason("table_settlement")
	if credits["u0"] != 20000 || credits["u1"] != 20000 {
		t.Fatalf("settlement credits = %v, want 20000 each", credits)
	}
}

func TestRpcRoomStateIncludesBankroll(t *testing.T) {
	h := newTestHandlers()
	h.Economy.(*mockEconomy).balances["u0"] = 100000
	room := createRoom(t, h, "u0", "friday")

	out, err := h.RpcRoomState(ctxWithUser("u0"), noopLogger{}, nil, nil, `{"room_id":"`+room.RoomID+`"}`)
	if err != nil {
		t.Fatalf("RpcRoomState error: %v", err)
	}
	var view RoomState
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("state response: %v", err)
	}
	if view.Bankroll != 100000 {
		t.Fatalf("Bankroll = %d, want 100000", view.Bankroll)
	}
}

func TestRpcRemoveRoomCreatorOnly(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")
	payload := `{"room_id":"` + room.RoomID + `"}`

	if _, err := h.RpcRemoveRoom(ctxWithUser("u1"), noopLogger{}, nil, nil, payload); err == nil {
		t.Fatal("expected rejection for non-creator")
	} else if got := runtimeCode(t, err); got != 7 {
		t.Fatalf("code = %d, want 7", got)
	}

	if _, err := h.RpcRemoveRoom(ctxWithUser("u0"), noopLogger{}, nil, nil, payload); err != nil {
		t.Fatalf("RpcRemoveRoom error: %v", err)
	}
	if _, err := h.RpcRoomState(ctxWithUser("u0"), noopLogger{}, nil, nil, payload); err == nil {
		t.Fatal("expected room to be gone")
	}
}

func TestRpcRoomTicketRoles(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")

	issue := func(userID, role string) (string, error) {
		payload, _ := json.Marshal(roomTicketRequest{RoomID: room.RoomID, Role: role})
		out, err := h.RpcRoomTicket(ctxWithUser(userID), noopLogger{}, nil, nil, string(payload))
		if err != nil {
			return "", err
		}
		var resp roomTicketResponse
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			return "", err
		}
		return resp.Ticket, nil
	}

	ticket, err := issue("u0", app.TicketRolePlayer)
	if err != nil {
		t.Fatalf("creator player ticket error: %v", err)
	}
	claims, err := h.Tickets.VerifyTicket(ticket)
	if err != nil {
		t.Fatalf("VerifyTicket error: %v", err)
	}
	if claims.UserID != "u0" || claims.RoomID != room.RoomID || claims.Role != app.TicketRolePlayer {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := issue("stranger", app.TicketRolePlayer); err == nil {
		t.Fatal("expected player ticket rejection for unseated user")
	} else if got := runtimeCode(t, err); got != 7 {
		t.Fatalf("code = %d, want 7", got)
	}

	if _, err := issue("stranger", ""); err != nil {
		t.Fatalf("spectator ticket error: %v", err)
	}
}

func TestRpcRoomStateRestoresFromStorage(t *testing.T) {
	h := newTestHandlers()
	room := createRoom(t, h, "u0", "friday")

	start, _ := json.Marshal(startGameRequest{
		RoomID:        room.RoomID,
		Identities:    []string{"u0", "u1"},
		SmallBlind:    500,
		BigBlind:      1000,
		StartingChips: 20000,
	})
	if _, err := h.RpcStartGame(ctxWithUser("u0"), noopLogger{}, nil, nil, string(start)); err != nil {
		t.Fatalf("RpcStartGame error: %v", err)
	}

	// Simulate a restart that emptied the directory but kept storage.
	if err := h.Directory.Remove(room.RoomID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	out, err := h.RpcRoomState(ctxWithUser("u0"), noopLogger{}, nil, nil, `{"room_id":"`+room.RoomID+`"}`)
	if err != nil {
		t.Fatalf("RpcRoomState error: %v", err)
	}
	var view RoomState
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("state response: %v", err)
	}
	if view.Phase != string(domain.PhaseInitialized) || len(view.Players) != 2 {
		t.Fatalf("restored view = phase %s players %d", view.Phase, len(view.Players))
	}
	if view.CardsRemaining != domain.DeckSize {
		t.Fatalf("restored deck = %d cards, want %d", view.CardsRemaining, domain.DeckSize)
	}

	// The restored room is live again for transitions.
	if _, err := h.RpcDealUserCards(ctxWithUser("u0"), noopLogger{}, nil, nil, `{"room_id":"`+room.RoomID+`"}`); err != nil {
		t.Fatalf("deal after restore error: %v", err)
	}
}
