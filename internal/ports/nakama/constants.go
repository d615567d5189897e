package nakama

// RPC identifiers exposed to clients.
const (
	RpcCreateRoom    = "create_room"
	RpcListRooms     = "list_rooms"
	RpcRoomState     = "room_state"
	RpcRemoveRoom    = "remove_room"
	RpcRoomTicket    = "room_ticket"
	RpcStartGame     = "start_game"
	RpcDealUserCards = "deal_user_cards"
	RpcDealFlop      = "deal_flop"
	RpcDealTurn      = "deal_turn"
	RpcDealRiver     = "deal_river"
	RpcSitUser       = "sit_user"
	RpcStandUser     = "stand_user"
	RpcSetGameAdmin  = "set_game_admin"
)

// MatchNameHoldem is the authoritative match handler name registered with
// Nakama. One match is created per room for table presence and broadcast.
const MatchNameHoldem = "holdem_table"

// Op codes for match messages.
const (
	// Client -> Server
	OpStartGame     int64 = 1
	OpDealUserCards int64 = 2
	OpDealFlop      int64 = 3
	OpDealTurn      int64 = 4
	OpDealRiver     int64 = 5
	OpSitUser       int64 = 6
	OpStandUser     int64 = 7
	OpSetGameAdmin  int64 = 8

	// Server -> Client events
	OpRoomSnapshot int64 = 101
	OpHoleCards    int64 = 102 // sent privately
	OpGameError    int64 = 103
)

// Storage layout for persisted sessions.
const (
	gameCollection = "games"
)
