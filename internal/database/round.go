package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// RecordWin adds one to the user's win counter for roundID. The round id is
// claimed in round_wins within the same transaction, so recording the same
// round again is a no-op.
func (s *Store) RecordWin(ctx context.Context, userID, roundID uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO round_wins (round_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (round_id) DO NOTHING`, roundID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		tag, err = tx.Exec(ctx, `UPDATE users SET wins = wins + 1 WHERE id = $1`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record win for round %s: %w", roundID, err)
	}
	return nil
}

// InsertRoundHistory stores resolved rounds drained from the historian queue.
// Rounds already present are skipped.
func (s *Store) InsertRoundHistory(ctx context.Context, records []models.RoundResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `
		INSERT INTO round_history
			(round_id, user_id, outcome, player_score, dealer_score, player_cards, dealer_cards, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (round_id) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(q,
				rec.RoundID, rec.UserID, string(rec.Outcome),
				rec.PlayerScore, rec.DealerScore,
				rec.PlayerCards, rec.DealerCards,
				time.UnixMilli(rec.Timestamp).UTC(),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// RoundHistory returns a user's most recent resolved rounds.
func (s *Store) RoundHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.RoundResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT round_id, user_id, outcome, player_score, dealer_score, player_cards, dealer_cards, resolved_at
		FROM round_history
		WHERE user_id = $1
		ORDER BY resolved_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoundResultRecord
	for rows.Next() {
		var rec models.RoundResultRecord
		var outcome string
		var resolvedAt time.Time
		if err := rows.Scan(&rec.RoundID, &rec.UserID, &outcome, &rec.PlayerScore, &rec.DealerScore,
			&rec.PlayerCards, &rec.DealerCards, &resolvedAt); err != nil {
			return nil, err
		}
		rec.Outcome = models.Outcome(outcome)
		rec.Timestamp = resolvedAt.UnixMilli()
		out = append(out, rec)
	}
	return out, rows.Err()
}
