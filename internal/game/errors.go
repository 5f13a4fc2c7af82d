package game

import "errors"

var (
	// ErrNoRound is returned when the session holds no round for the user.
	ErrNoRound = errors.New("no round in progress")

	// ErrRoundOver is returned for hit/stand against a round that already resolved.
	ErrRoundOver = errors.New("round is already over")

	// ErrCardSource wraps failures of the remote card service. Callers should
	// surface it as a retryable condition; no round state was changed.
	ErrCardSource = errors.New("card source unavailable")
)
