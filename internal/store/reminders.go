package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// UpsertReminder writes the record and raises the matching enabled flag in one
// transaction, keeping "record exists iff flag is set".
func (r *SQLiteRepo) UpsertReminder(ctx context.Context, rec domain.ReminderRecord) error {
	if !rec.Kind.Valid() {
		return fmt.Errorf("%w: unknown reminder kind %q", domain.ErrInvalidInput, rec.Kind)
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reminders (user_id, kind, fire_hour, fire_minute, next_fire_local)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, kind) DO UPDATE SET
				fire_hour       = excluded.fire_hour,
				fire_minute     = excluded.fire_minute,
				next_fire_local = excluded.next_fire_local`,
			rec.UserID, string(rec.Kind), rec.Hour, rec.Minute, rec.NextFireLocal,
		); err != nil {
			return err
		}
		return setReminderEnabled(ctx, tx, rec.UserID, rec.Kind, true)
	})
}

// DeleteReminder removes the record and clears the flag. It reports
// domain.ErrNotFound when the kind was not enabled.
func (r *SQLiteRepo) DeleteReminder(ctx context.Context, userID int64, kind domain.Kind) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		enabled, err := isReminderEnabled(ctx, tx, userID, kind)
		if err != nil {
			return err
		}
		if !enabled {
			return fmt.Errorf("reminder %s for user %d: %w", kind, userID, domain.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reminders WHERE user_id = ? AND kind = ?`, userID, string(kind),
		); err != nil {
			return err
		}
		return setReminderEnabled(ctx, tx, userID, kind, false)
	})
}

// GetReminder returns one record or domain.ErrNotFound.
func (r *SQLiteRepo) GetReminder(ctx context.Context, userID int64, kind domain.Kind) (domain.ReminderRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, kind, fire_hour, fire_minute, next_fire_local
		FROM reminders
		WHERE user_id = ? AND kind = ?`,
		userID, string(kind),
	)
	rec, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReminderRecord{}, fmt.Errorf("reminder %s for user %d: %w", kind, userID, domain.ErrNotFound)
	}
	return rec, err
}

// ListReminders returns every record, ordered by user and kind.
func (r *SQLiteRepo) ListReminders(ctx context.Context) ([]domain.ReminderRecord, error) {
	return r.queryReminders(ctx, `
		SELECT user_id, kind, fire_hour, fire_minute, next_fire_local
		FROM reminders
		ORDER BY user_id, kind`)
}

// ListUserReminders returns the records of one user.
func (r *SQLiteRepo) ListUserReminders(ctx context.Context, userID int64) ([]domain.ReminderRecord, error) {
	return r.queryReminders(ctx, `
		SELECT user_id, kind, fire_hour, fire_minute, next_fire_local
		FROM reminders
		WHERE user_id = ?
		ORDER BY kind`, userID)
}

func (r *SQLiteRepo) queryReminders(ctx context.Context, query string, args ...any) ([]domain.ReminderRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ReminderRecord
	for rows.Next() {
		rec, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (domain.ReminderRecord, error) {
	var (
		rec  domain.ReminderRecord
		kind string
	)
	if err := s.Scan(&rec.UserID, &kind, &rec.Hour, &rec.Minute, &rec.NextFireLocal); err != nil {
		return domain.ReminderRecord{}, err
	}
	k, err := domain.ParseKind(kind)
	if err != nil {
		return domain.ReminderRecord{}, err
	}
	rec.Kind = k
	return rec, nil
}
