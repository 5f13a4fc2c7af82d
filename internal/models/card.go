package models

// Card values as reported by the deck API.
const (
	ValueAce   = "ACE"
	ValueKing  = "KING"
	ValueQueen = "QUEEN"
	ValueJack  = "JACK"
)

// Card is a single card drawn from the remote shoe. Suit is carried for display only.
type Card struct {
	Code  string `json:"code"`
	Value string `json:"value"`
	Suit  string `json:"suit"`
	Image string `json:"image,omitempty"`
}

// IsAce reports whether the card is an ace.
func (c Card) IsAce() bool {
	return c.Value == ValueAce
}

// Hand is an ordered sequence of cards. It is only ever appended to during a round.
type Hand []Card

// Clone returns a copy of the hand that can be appended to without touching h.
func (h Hand) Clone() Hand {
	out := make(Hand, len(h), len(h)+1)
	copy(out, h)
	return out
}
