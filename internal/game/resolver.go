// internal/game/resolver.go
package game

import "github.com/jason-s-yu/blackjack/internal/models"

// Result is the resolver's verdict for one evaluation of a round.
type Result struct {
	Over        bool
	Outcome     models.Outcome
	PlayerScore int
	DealerScore int
}

// Resolve decides whether a round is over and how it ended.
//
// The round ends when either hand busts or the player stood. Once over, the player
// wins with a live hand that beats the dealer or faces a dealer bust, draws on
// equal live totals, and loses in every other case. Resolve has no side effects;
// recording wins is left to the Table.
func Resolve(player, dealer models.Hand, playerRequestedStop bool) Result {
	ps, ds := Score(player), Score(dealer)
	res := Result{PlayerScore: ps, DealerScore: ds, Outcome: models.OutcomeContinue}

	playerBust, dealerBust := IsBust(player), IsBust(dealer)
	if !playerBust && !dealerBust && !playerRequestedStop {
		return res
	}
	res.Over = true

	switch {
	case !playerBust && (ps > ds || dealerBust):
		res.Outcome = models.OutcomeWin
	case ps == ds && !playerBust:
		res.Outcome = models.OutcomeDraw
	default:
		res.Outcome = models.OutcomeLoss
	}
	return res
}
