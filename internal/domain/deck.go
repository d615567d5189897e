package domain

import (
	"math/rand"
	"time"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// Deck is an ordered sequence of distinct cards. Randomness is injected at
// construction so shuffles are reproducible under a seeded rng.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck returns a full 52-card deck in canonical rank-major, suit-minor
// order. rng may be nil to use a time-seeded default.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cards := make([]Card, 0, DeckSize)
	for r := 1; r <= 13; r++ {
		for _, s := range Suits {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return &Deck{cards: cards, rng: rng}
}

// DecodeDeck reconstructs a deck from its persisted encoding. Fails with
// MalformedDeckError on an unparseable token or a duplicate card.
func DecodeDeck(text string, rng *rand.Rand) (*Deck, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cards, err := DecodeCards(text)
	if err != nil {
		return nil, err
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if seen[c] {
			return nil, &MalformedDeckError{Token: c.Token(), Reason: "duplicate card"}
		}
		seen[c] = true
	}
	return &Deck{cards: cards, rng: rng}, nil
}

// Shuffle permutes the remaining cards in place.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the first n cards in current order.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, &InsufficientCardsError{Requested: n, Remaining: len(d.cards)}
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining reports how many cards are left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in order.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Encode renders the remaining cards in the persisted space-separated form.
func (d *Deck) Encode() string {
	return EncodeCards(d.cards)
}

// Clone returns an independent copy sharing the rng.
func (d *Deck) Clone() *Deck {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return &Deck{cards: cards, rng: d.rng}
}
