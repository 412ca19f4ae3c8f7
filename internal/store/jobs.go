package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// SaveJob inserts or replaces a job descriptor. LastFired survives a replace
// only when the caller carries it over.
func (r *SQLiteRepo) SaveJob(ctx context.Context, job domain.ScheduledJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (
			id, user_id, kind, fire_hour, fire_minute, timezone, first_fire_at, last_fired_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id       = excluded.user_id,
			kind          = excluded.kind,
			fire_hour     = excluded.fire_hour,
			fire_minute   = excluded.fire_minute,
			timezone      = excluded.timezone,
			first_fire_at = excluded.first_fire_at,
			last_fired_at = excluded.last_fired_at`,
		job.ID, job.UserID, string(job.Kind), job.Hour, job.Minute, job.Timezone,
		job.FirstFire.UTC().Unix(), toNullInt64(job.LastFired),
	)
	return err
}

// DeleteJob removes a descriptor. Deleting an unknown id is not an error.
func (r *SQLiteRepo) DeleteJob(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	return err
}

// ListJobs returns every persisted descriptor.
func (r *SQLiteRepo) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, fire_hour, fire_minute, timezone, first_fire_at, last_fired_at
		FROM scheduled_jobs
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ScheduledJob
	for rows.Next() {
		var (
			j         domain.ScheduledJob
			kind      string
			firstFire int64
			lastFired sql.NullInt64
		)
		if err := rows.Scan(&j.ID, &j.UserID, &kind, &j.Hour, &j.Minute, &j.Timezone, &firstFire, &lastFired); err != nil {
			return nil, err
		}
		// Unknown kinds are kept as-is so reconciliation drops the row.
		j.Kind = domain.Kind(kind)
		if k, err := domain.ParseKind(kind); err == nil {
			j.Kind = k
		}
		j.FirstFire = time.Unix(firstFire, 0).UTC()
		j.LastFired = fromNullInt64(lastFired)
		res = append(res, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// MarkJobFired records the last activation of a job.
func (r *SQLiteRepo) MarkJobFired(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scheduled_jobs SET last_fired_at = ? WHERE id = ?`, at.UTC().Unix(), id)
	return err
}
