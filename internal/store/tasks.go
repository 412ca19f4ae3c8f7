package store

import (
	"context"
	"errors"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// InsertTask stores a new task and fills in its id.
func (r *SQLiteRepo) InsertTask(ctx context.Context, t *domain.Task) error {
	if t == nil {
		return errors.New("nil task")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, content, priority, done, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.UserID, t.Content, t.Priority, boolToInt(t.Done), t.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// ListTasksByDate returns the user's tasks created on the given local date
// (YYYY-MM-DD), most urgent first, then oldest first.
func (r *SQLiteRepo) ListTasksByDate(ctx context.Context, userID int64, date string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content, priority, done, created_at
		FROM tasks
		WHERE user_id = ?
		  AND substr(created_at, 1, 10) = ?
		ORDER BY priority DESC, created_at ASC, id ASC`,
		userID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Task
	for rows.Next() {
		var (
			t       domain.Task
			doneInt int
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Content, &t.Priority, &doneInt, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Done = doneInt != 0
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// MarkTaskDone flags matching tasks of the given date as done and returns how
// many rows changed. Already done tasks are not counted.
func (r *SQLiteRepo) MarkTaskDone(ctx context.Context, userID int64, content, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET done = 1
		WHERE user_id = ?
		  AND content = ?
		  AND done = 0
		  AND substr(created_at, 1, 10) = ?`,
		userID, content, date,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTask removes every task of the user with exactly this content.
func (r *SQLiteRepo) DeleteTask(ctx context.Context, userID int64, content string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND content = ?`, userID, content)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TaskStats counts all-time and per-date tasks for a user.
func (r *SQLiteRepo) TaskStats(ctx context.Context, userID int64, date string) (domain.TaskStats, error) {
	var s domain.TaskStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(id),
			COALESCE(SUM(done), 0),
			COALESCE(SUM(CASE WHEN substr(created_at, 1, 10) = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN substr(created_at, 1, 10) = ? AND done = 1 THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE user_id = ?`,
		date, date, userID,
	).Scan(&s.Logged, &s.Done, &s.Today, &s.TodayDone)
	if err != nil {
		return domain.TaskStats{}, err
	}
	s.Left = s.Logged - s.Done
	return s, nil
}
