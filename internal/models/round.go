package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of a round from the player's point of view.
type Outcome string

const (
	OutcomeContinue Outcome = "CONTINUE"
	OutcomeWin      Outcome = "WIN"
	OutcomeLoss     Outcome = "LOSS"
	OutcomeDraw     Outcome = "DRAW"
)

// RoundState is everything the server keeps about a user's current round.
// It lives in the session store between turns.
type RoundState struct {
	ID     uuid.UUID `json:"id"`
	DeckID string    `json:"deck_id"`
	Player Hand      `json:"player"`
	Dealer Hand      `json:"dealer"`

	// Resolved is set once the round reaches a terminal outcome. A resolved
	// round accepts no further hit/stand actions.
	Resolved bool    `json:"resolved"`
	Outcome  Outcome `json:"outcome"`

	// WinRecorded is set once a WIN has been credited to the user's account.
	// A resolved WIN without it still owes the user a win.
	WinRecorded bool `json:"win_recorded,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Clone returns a deep copy so that a turn can be applied without mutating the stored state.
func (s *RoundState) Clone() *RoundState {
	cp := *s
	cp.Player = s.Player.Clone()
	cp.Dealer = s.Dealer.Clone()
	if s.ResolvedAt != nil {
		t := *s.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

// RoundResultRecord is what gets queued for the historian once a round resolves.
type RoundResultRecord struct {
	RoundID     uuid.UUID `json:"round_id"`
	UserID      uuid.UUID `json:"user_id"`
	Outcome     Outcome   `json:"outcome"`
	PlayerScore int       `json:"player_score"`
	DealerScore int       `json:"dealer_score"`
	PlayerCards []string  `json:"player_cards"`
	DealerCards []string  `json:"dealer_cards"`
	Timestamp   int64     `json:"timestamp"`
}
