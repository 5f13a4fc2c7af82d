// internal/game/score.go
package game

import (
	"strconv"

	"github.com/jason-s-yu/blackjack/internal/models"
)

const (
	// BlackjackTotal is the highest total a hand can hold without busting.
	BlackjackTotal = 21

	// DealerStandsOn is the lowest total at which the dealer stops drawing.
	DealerStandsOn = 16

	faceCardValue = 10
	aceHighValue  = 11
	aceReduction  = 10
)

// CardValue returns the base point value of a single card, counting an ace as 11.
// Unknown values score 0.
func CardValue(c models.Card) int {
	switch c.Value {
	case models.ValueAce:
		return aceHighValue
	case models.ValueKing, models.ValueQueen, models.ValueJack:
		return faceCardValue
	default:
		v, err := strconv.Atoi(c.Value)
		if err != nil || v < 2 || v > 10 {
			return 0
		}
		return v
	}
}

// Score computes the point total of a hand.
//
// Aces count 11. When the sum goes over 21 and the hand holds an ace, 10 is taken
// off once. The reduction is applied a single time no matter how many aces the
// hand holds, so A+A+10 scores 22.
func Score(hand models.Hand) int {
	total := 0
	hasAce := false
	for _, c := range hand {
		total += CardValue(c)
		if c.IsAce() {
			hasAce = true
		}
	}
	if total > BlackjackTotal && hasAce {
		total -= aceReduction
	}
	return total
}

// IsBust reports whether the hand total is over 21.
func IsBust(hand models.Hand) bool {
	return Score(hand) > BlackjackTotal
}

// MustDraw reports whether the dealer has to take another card.
// The dealer draws on 15 or less and stands on 16 or more.
func MustDraw(dealer models.Hand) bool {
	return Score(dealer) < DealerStandsOn
}
