package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// EnsureUser creates an empty user row (no timezone) if none exists yet.
func (r *SQLiteRepo) EnsureUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING`,
		userID, time.Now().UTC().Unix(),
	)
	return err
}

// UpsertUser inserts a user or updates its timezone and cached offset.
// Reminder flags are owned by the reminder methods and are left untouched.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, timezone, utc_offset, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timezone   = excluded.timezone,
			utc_offset = excluded.utc_offset`,
		u.ID, toNullString(u.Timezone), u.UTCOffset, created,
	)
	return err
}

// GetUser returns a user by id, or domain.ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, timezone, utc_offset, achievement_enabled, last_call_enabled, created_at
		FROM users
		WHERE id = ?`,
		userID,
	)

	var (
		u         domain.User
		tz        sql.NullString
		doneInt   int
		leftInt   int
		createdAt int64
	)
	if err := row.Scan(&u.ID, &tz, &u.UTCOffset, &doneInt, &leftInt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}
	u.Timezone = tz.String
	u.AchievementEnabled = doneInt != 0
	u.LastCallEnabled = leftInt != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// SetUserOffset refreshes the cached display offset.
func (r *SQLiteRepo) SetUserOffset(ctx context.Context, userID int64, offset string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET utc_offset = ? WHERE id = ?`, offset, userID)
	return err
}

// DeleteUser removes the user together with its tasks and reminder records in
// a single transaction.
func (r *SQLiteRepo) DeleteUser(ctx context.Context, userID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = ?`, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ?`, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return nil
	})
}

// IsReminderEnabled reads the per-kind flag. A missing user reads as disabled.
func (r *SQLiteRepo) IsReminderEnabled(ctx context.Context, userID int64, kind domain.Kind) (bool, error) {
	return isReminderEnabled(ctx, r.db, userID, kind)
}

// SetReminderEnabled writes the per-kind flag.
func (r *SQLiteRepo) SetReminderEnabled(ctx context.Context, userID int64, kind domain.Kind, enabled bool) error {
	return setReminderEnabled(ctx, r.db, userID, kind, enabled)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isReminderEnabled(ctx context.Context, q querier, userID int64, kind domain.Kind) (bool, error) {
	col, err := enabledColumn(kind)
	if err != nil {
		return false, err
	}
	var v int
	err = q.QueryRowContext(ctx, `SELECT `+col+` FROM users WHERE id = ?`, userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func setReminderEnabled(ctx context.Context, q querier, userID int64, kind domain.Kind, enabled bool) error {
	col, err := enabledColumn(kind)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `UPDATE users SET `+col+` = ? WHERE id = ?`, boolToInt(enabled), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}
