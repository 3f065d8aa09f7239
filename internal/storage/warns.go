package storage

import (
	"context"
	"time"
)

type Warning struct {
	Reason   string
	WarnedAt time.Time
}

// AddWarning appends a warning at the next free position. The position
// is computed and written inside one transaction so concurrent warn
// and unwarn calls for the same member cannot interleave.
func (s *Store) AddWarning(ctx context.Context, guildID, userID, reason string, at time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM warnings WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err = row.Scan(&count); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO warnings (guild_id, user_id, position, reason, warned_at)
		VALUES (?, ?, ?, ?, ?)
	`, guildID, userID, count, reason, at.Unix())
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count + 1, nil
}

// RemoveWarning deletes the warning at index and renumbers the rest so
// positions stay dense. Returns the removed warning, or false when the
// member has no warning at that index.
func (s *Store) RemoveWarning(ctx context.Context, guildID, userID string, index int) (Warning, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Warning{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var reason string
	var warnedAt int64
	row := tx.QueryRowContext(ctx, `
		SELECT reason, warned_at FROM warnings
		WHERE guild_id = ? AND user_id = ? AND position = ?
	`, guildID, userID, index)
	if scanErr := row.Scan(&reason, &warnedAt); scanErr != nil {
		_ = tx.Rollback()
		return Warning{}, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM warnings WHERE guild_id = ? AND user_id = ? AND position = ?
	`, guildID, userID, index)
	if err != nil {
		return Warning{}, false, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE warnings SET position = position - 1
		WHERE guild_id = ? AND user_id = ? AND position > ?
	`, guildID, userID, index)
	if err != nil {
		return Warning{}, false, err
	}
	if err = tx.Commit(); err != nil {
		return Warning{}, false, err
	}
	return Warning{Reason: reason, WarnedAt: time.Unix(warnedAt, 0)}, true, nil
}

func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, warned_at FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY position
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var warning Warning
		var warnedAt int64
		if err := rows.Scan(&warning.Reason, &warnedAt); err != nil {
			return nil, err
		}
		warning.WarnedAt = time.Unix(warnedAt, 0)
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}
