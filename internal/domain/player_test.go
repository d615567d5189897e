package domain

import (
	"errors"
	"fmt"
	"testing"
)

func identityList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user-%d", i)
	}
	return out
}

func TestSeatPlayersAssignsSequentialSeats(t *testing.T) {
	identities := identityList(6)
	players, err := SeatPlayers(identities, "user-0", 20000, 10)
	if err != nil {
		t.Fatalf("SeatPlayers error: %v", err)
	}
	if len(players) != 6 {
		t.Fatalf("seated %d players, want 6", len(players))
	}

	admins := 0
	for i, p := range players {
		if p.Seat != i {
			t.Fatalf("players[%d].Seat = %d, want %d", i, p.Seat, i)
		}
		if p.UserID != identities[i] {
			t.Fatalf("players[%d].UserID = %s, want %s", i, p.UserID, identities[i])
		}
		if p.Chips != 20000 {
			t.Fatalf("players[%d].Chips = %d, want 20000", i, p.Chips)
		}
		if p.IsAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Fatalf("admin count = %d, want 1", admins)
	}
	if !players[0].IsAdmin {
		t.Fatal("creator should hold the admin flag")
	}
}

func TestSeatPlayersCreatorNotFirst(t *testing.T) {
	players, err := SeatPlayers([]string{"a", "b", "c"}, "b", 1000, 10)
	if err != nil {
		t.Fatalf("SeatPlayers error: %v", err)
	}
	if players[0].IsAdmin {
		t.Fatal("seat 0 should not be admin when creator sits elsewhere")
	}
	if !players[1].IsAdmin {
		t.Fatal("creator at seat 1 should be admin")
	}
}

func TestSeatPlayersCapacity(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{name: "One", count: 1},
		{name: "AtCapacity", count: 10},
		{name: "OverCapacity", count: 11, wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			players, err := SeatPlayers(identityList(test.count), "user-0", 500, 10)
			if test.wantErr {
				var tooMany *TooManyPlayersError
				if !errors.As(err, &tooMany) {
					t.Fatalf("error = %v, want TooManyPlayersError", err)
				}
				if tooMany.Count != test.count || tooMany.Capacity != 10 {
					t.Fatalf("error = %+v, want count %d capacity 10", tooMany, test.count)
				}
				return
			}
			if err != nil {
				t.Fatalf("SeatPlayers error: %v", err)
			}
			if len(players) != test.count {
				t.Fatalf("seated %d, want %d", len(players), test.count)
			}
		})
	}
}

func TestSeatPlayersRejectsDuplicates(t *testing.T) {
	_, err := SeatPlayers([]string{"a", "b", "a"}, "a", 500, 10)
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("error = %v, want ErrDuplicateIdentity", err)
	}
}

func TestSeatPlayersRequiresCreator(t *testing.T) {
	_, err := SeatPlayers([]string{"a", "b"}, "missing", 500, 10)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if notFound.ID != "missing" {
		t.Fatalf("NotFoundError.ID = %s, want missing", notFound.ID)
	}
}
