package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
)

const msgCardServiceUnavailable = "card service unavailable, try again"

type handView struct {
	Cards models.Hand `json:"cards"`
	Score int         `json:"score"`
}

// roundView is what clients see of a round, over HTTP and the socket alike.
type roundView struct {
	RoundID uuid.UUID      `json:"round_id"`
	Player  handView       `json:"player"`
	Dealer  handView       `json:"dealer"`
	Over    bool           `json:"over"`
	Outcome models.Outcome `json:"outcome"`
	Wins    *int           `json:"wins,omitempty"`
}

// roundAction is one step of the turn protocol.
type roundAction func(ctx context.Context, userID uuid.UUID) (*models.RoundState, error)

// view renders a round. The win count is looked up fresh; if that fails the
// round is still returned without it.
func (s *Server) view(ctx context.Context, userID uuid.UUID, state *models.RoundState) roundView {
	v := roundView{
		RoundID: state.ID,
		Player:  handView{Cards: state.Player, Score: game.Score(state.Player)},
		Dealer:  handView{Cards: state.Dealer, Score: game.Score(state.Dealer)},
		Over:    state.Resolved,
		Outcome: state.Outcome,
	}
	if v.Player.Cards == nil {
		v.Player.Cards = models.Hand{}
	}
	if v.Dealer.Cards == nil {
		v.Dealer.Cards = models.Hand{}
	}
	if v.Outcome == "" {
		v.Outcome = models.OutcomeContinue
	}
	user, err := s.accounts.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).Warnf("failed to load win count: %v", err)
		return v
	}
	v.Wins = &user.Wins
	return v
}

// roundErrorStatus maps a turn protocol error to an HTTP status and a message
// safe to show to the player.
func roundErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrNoRound):
		return http.StatusNotFound, "no round in progress, start a new one"
	case errors.Is(err, game.ErrRoundOver):
		return http.StatusConflict, "round is already over, start a new one"
	case errors.Is(err, game.ErrCardSource):
		return http.StatusServiceUnavailable, msgCardServiceUnavailable
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) serveRound(w http.ResponseWriter, r *http.Request, action roundAction) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	state, err := action(r.Context(), userID)
	if err != nil {
		status, msg := roundErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.WithField("user_id", userID).Errorf("round action failed: %v", err)
		}
		http.Error(w, msg, status)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(r.Context(), userID, state))
}

// NewRoundHandler deals a fresh round, abandoning any round in progress.
func (s *Server) NewRoundHandler(w http.ResponseWriter, r *http.Request) {
	s.serveRound(w, r, s.rounds.NewRound)
}

func (s *Server) HitHandler(w http.ResponseWriter, r *http.Request) {
	s.serveRound(w, r, s.rounds.Hit)
}

func (s *Server) StandHandler(w http.ResponseWriter, r *http.Request) {
	s.serveRound(w, r, s.rounds.Stand)
}

// CurrentRoundHandler shows the stored round without changing it.
func (s *Server) CurrentRoundHandler(w http.ResponseWriter, r *http.Request) {
	s.serveRound(w, r, s.rounds.Current)
}

// ForgetRoundHandler drops the stored round. A live round's cards go back to
// the deck; a won round is credited first.
func (s *Server) ForgetRoundHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.rounds.Forget(r.Context(), userID); err != nil {
		status, msg := roundErrorStatus(err)
		s.logger.WithField("user_id", userID).Errorf("failed to forget round: %v", err)
		http.Error(w, msg, status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
