package domain

import "strings"

// Suit glyphs used in the persisted card encoding.
const (
	SuitSpade   = "S"
	SuitHeart   = "H"
	SuitDiamond = "D"
	SuitClub    = "C"
)

// Suits lists the four suits in canonical order.
var Suits = []string{SuitSpade, SuitHeart, SuitDiamond, SuitClub}

// rankTokens maps Rank-1 to the textual rank symbol.
var rankTokens = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card is a single playing card.
type Card struct {
	Rank int    `json:"rank"` // 1..13 (1=A, 11=J, 12=Q, 13=K)
	Suit string `json:"suit"` // "S","H","D","C"
}

// Token renders the card in its persisted form, e.g. "AS", "10H", "QD".
// Rank 10 is the only three-character token.
func (c Card) Token() string {
	return rankTokens[c.Rank-1] + c.Suit
}

// ParseCard parses a single card token. The suit glyph is always the last
// character; everything before it must be a valid rank symbol.
func ParseCard(token string) (Card, error) {
	if len(token) < 2 || len(token) > 3 {
		return Card{}, &MalformedDeckError{Token: token, Reason: "token must be 2 or 3 characters"}
	}

	suit := token[len(token)-1:]
	if !validSuit(suit) {
		return Card{}, &MalformedDeckError{Token: token, Reason: "unrecognized suit glyph"}
	}

	rankSym := token[:len(token)-1]
	for i, sym := range rankTokens {
		if sym == rankSym {
			return Card{Rank: i + 1, Suit: suit}, nil
		}
	}
	return Card{}, &MalformedDeckError{Token: token, Reason: "unrecognized rank symbol"}
}

func validSuit(s string) bool {
	switch s {
	case SuitSpade, SuitHeart, SuitDiamond, SuitClub:
		return true
	}
	return false
}

// EncodeCards renders cards as a space-separated token string.
func EncodeCards(cards []Card) string {
	tokens := make([]string, len(cards))
	for i, c := range cards {
		tokens[i] = c.Token()
	}
	return strings.Join(tokens, " ")
}

// DecodeCards parses a space-separated token string. Order is preserved.
// Duplicate cards are allowed here; deck-level decoding rejects them.
func DecodeCards(text string) ([]Card, error) {
	fields := strings.Fields(text)
	cards := make([]Card, 0, len(fields))
	for _, token := range fields {
		c, err := ParseCard(token)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
