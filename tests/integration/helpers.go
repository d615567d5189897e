package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

// Op codes mirrored from the server module.
const (
	OpStartGame     = 1
	OpDealUserCards = 2
	OpDealFlop      = 3
	OpDealTurn      = 4
	OpDealRiver     = 5

	OpRoomSnapshot = 101
	OpHoleCards    = 102
	OpGameError    = 103
)

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	Socket  *nakama.Socket
	UserID  string
}

func NewTestClient(t *testing.T) *TestClient {
	client := nakama.NewClient(ServerKey, Host, Port, false)

	// Create unique ID
	deviceID := fmt.Sprintf("test_device_%d", time.Now().UnixNano())

	// Authenticate
	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	// Create Socket
	socket := client.NewSocket()
	if err := socket.Connect(context.Background(), session, true); err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}

	return &TestClient{
		Client:  client,
		Session: session,
		Socket:  socket,
		UserID:  session.UserId,
	}
}

func (tc *TestClient) Close() {
	if tc.Socket != nil {
		tc.Socket.Close()
	}
}

// Rpc calls a server RPC with a JSON payload and decodes the JSON response
// into out when out is non-nil.
func (tc *TestClient) Rpc(t *testing.T, id string, payload interface{}, out interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal %s payload: %v", id, err)
	}
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, id, string(data))
	if err != nil {
		t.Fatalf("RPC %s failed: %v", id, err)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(rpc.Payload), out); err != nil {
			t.Fatalf("Failed to unmarshal %s response: %v", id, err)
		}
	}
}

// CreateRoomAndJoin creates a room via RPC and joins its table match.
func (tc *TestClient) CreateRoomAndJoin(t *testing.T, name string) (roomID, matchID string) {
	t.Helper()
	var resp struct {
		RoomID  string `json:"room_id"`
		MatchID string `json:"match_id"`
	}
	tc.Rpc(t, "create_room", map[string]string{"name": name}, &resp)
	if resp.RoomID == "" || resp.MatchID == "" {
		t.Fatalf("create_room returned room=%q match=%q", resp.RoomID, resp.MatchID)
	}

	if _, err := tc.Socket.JoinMatch(context.Background(), nil, resp.MatchID, nil); err != nil {
		t.Fatalf("Failed to join match %s: %v", resp.MatchID, err)
	}
	return resp.RoomID, resp.MatchID
}

// WaitForMatchState waits for a specific opcode from the socket.
func (tc *TestClient) WaitForMatchState(t *testing.T, opCode int64, timeout time.Duration) *rtapi.MatchData {
	ch := make(chan *rtapi.MatchData)

	originalHandler := tc.Socket.OnMatchData
	tc.Socket.OnMatchData = func(data *rtapi.MatchData) {
		if data.OpCode == opCode {
			ch <- data
		}
		if originalHandler != nil {
			originalHandler(data)
		}
	}

	select {
	case data := <-ch:
		return data
	case <-time.After(timeout):
		t.Fatalf("Timeout waiting for OpCode %d", opCode)
		return nil
	}
}

// WaitForPhase waits for a room snapshot announcing the given phase.
func (tc *TestClient) WaitForPhase(t *testing.T, phase string, timeout time.Duration) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timeout waiting for phase %s", phase)
		}
		data := tc.WaitForMatchState(t, OpRoomSnapshot, remaining)
		var snapshot map[string]interface{}
		if err := json.Unmarshal(data.Data, &snapshot); err != nil {
			t.Fatalf("Failed to unmarshal snapshot: %v", err)
		}
		if snapshot["phase"] == phase {
			return snapshot
		}
	}
}
