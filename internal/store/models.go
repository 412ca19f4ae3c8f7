package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

func toNullInt64(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	return time.Unix(ns.Int64, 0).UTC()
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// enabledColumn maps a reminder kind to its flag column on users.
func enabledColumn(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindAchievement:
		return "achievement_enabled", nil
	case domain.KindLastCall:
		return "last_call_enabled", nil
	}
	return "", fmt.Errorf("%w: unknown reminder kind %q", domain.ErrInvalidInput, kind)
}
