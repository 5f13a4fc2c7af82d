package deckapi

// deckResponse covers every endpoint used here; fields that an endpoint does
// not send are left at their zero value.
type deckResponse struct {
	Success   bool      `json:"success"`
	DeckID    string    `json:"deck_id"`
	Shuffled  bool      `json:"shuffled"`
	Remaining int       `json:"remaining"`
	Cards     []apiCard `json:"cards"`
	Error     string    `json:"error"`
}

type apiCard struct {
	Code  string `json:"code"`
	Image string `json:"image"`
	Value string `json:"value"`
	Suit  string `json:"suit"`
}
