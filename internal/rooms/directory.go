package rooms

import (
	"sync"

	"holdem/internal/app"
	"holdem/internal/domain"

	"github.com/google/uuid"
)

// Directory maps room identifiers to live game sessions. Lookups may run
// concurrently; create and remove are exclusive with lookups of the same
// key.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// Room wraps one game session behind a mutex so state transitions get
// at-most-one-in-flight semantics. The held game is immutable once stored;
// transitions produce a new value that is swapped in under the lock.
type Room struct {
	mu      sync.Mutex
	version int64
	game    *domain.Game
}

// PlayerSnapshot projects one seated player.
type PlayerSnapshot struct {
	UserID  string
	Chips   int64
	Seat    int
	IsAdmin bool
	Hand    []domain.Card
}

// Snapshot is a read-only, fully copied projection of a session. It can be
// handed to presentation code without further locking.
type Snapshot struct {
	ID             string
	Name           string
	Active         bool
	Phase          domain.Phase
	SmallBlind     int64
	BigBlind       int64
	StartingChips  int64
	CreatedBy      string
	Players        []PlayerSnapshot
	Board          []domain.Card
	CardsRemaining int
	Version        int64
}

// NewDirectory returns an empty room directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// Create registers a fresh not-started session and returns its snapshot.
func (d *Directory) Create(name, creator string) Snapshot {
	game := domain.NewGame(uuid.NewString(), name, creator)
	room := &Room{game: game}

	d.mu.Lock()
	d.rooms[game.ID] = room
	d.mu.Unlock()

	return room.Snapshot()
}

// Restore registers a session reloaded from persistence. When the room is
// already live the existing entry wins, so a racing restore can never
// replace committed transitions with stale storage state.
func (d *Directory) Restore(game *domain.Game) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok := d.rooms[game.ID]; ok {
		return room
	}
	room := &Room{game: game}
	d.rooms[game.ID] = room
	return room
}

// Get returns the live room for an id.
func (d *Directory) Get(id string) (*Room, error) {
	d.mu.RLock()
	room, ok := d.rooms[id]
	d.mu.RUnlock()
	if !ok {
		return nil, &domain.NotFoundError{Kind: "room", ID: id}
	}
	return room, nil
}

// Snapshot returns the current projection of a room.
func (d *Directory) Snapshot(id string) (Snapshot, error) {
	room, err := d.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return room.Snapshot(), nil
}

// Remove drops a room from the directory when its session ends.
func (d *Directory) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[id]; !ok {
		return &domain.NotFoundError{Kind: "room", ID: id}
	}
	delete(d.rooms, id)
	return nil
}

// List returns snapshots of all active rooms.
func (d *Directory) List() []Snapshot {
	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, room)
	}
	d.mu.RUnlock()

	out := make([]Snapshot, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Snapshot())
	}
	return out
}

// Update runs one state transition under the room lock. fn receives the
// current session and returns its replacement; on error nothing is swapped
// in and the session is unchanged.
func (r *Room) Update(fn func(game *domain.Game) (*domain.Game, []app.Event, error)) ([]app.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, events, err := fn(r.game)
	if err != nil {
		return nil, err
	}
	r.game = next
	r.version++
	return events, nil
}

// Snapshot copies the session state out from under the lock, so a reader
// can never observe a transition half-applied.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.game
	snap := Snapshot{
		ID:            g.ID,
		Name:          g.Name,
		Active:        g.Active,
		Phase:         g.Phase,
		SmallBlind:    g.SmallBlind,
		BigBlind:      g.BigBlind,
		StartingChips: g.StartingChips,
		CreatedBy:     g.CreatedBy,
		Board:         append([]domain.Card(nil), g.Board...),
		Version:       r.version,
	}
	if g.Deck != nil {
		snap.CardsRemaining = g.Deck.Remaining()
	}
	snap.Players = make([]PlayerSnapshot, 0, len(g.Players))
	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			UserID:  p.UserID,
			Chips:   p.Chips,
			Seat:    p.Seat,
			IsAdmin: p.IsAdmin,
			Hand:    append([]domain.Card(nil), p.Hand...),
		})
	}
	return snap
}
