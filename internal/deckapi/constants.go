package deckapi

import "time"

const (
	defaultBaseURL     = "https://deckofcardsapi.com/api"
	defaultHTTPTimeout = 5 * time.Second
	defaultDeckCount   = 6

	// maxErrorBody bounds how much of an error response is kept for the message.
	maxErrorBody = 512

	opNewDeck = "new_deck"
	opDraw    = "draw"
	opReturn  = "return"
)
