package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
)

// CASGuard applies version-checked updates to project rows.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByVersion reports false when the row is gone or its version moved.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByVersion")
	}
	if expectedVersion < 0 {
		return false, ValidationError("expectedVersion must be >= 0")
	}
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// BumpVersion advances version from current to current+1 along with updates.
// A row that moved on since it was read yields a conflict.
func (g CASGuard) BumpVersion(dbc dbctx.Context, table string, id uuid.UUID, current int, updates map[string]any) (int, error) {
	next := current + 1
	merged := map[string]any{"version": next}
	for k, v := range updates {
		merged[k] = v
	}
	ok, err := g.UpdateByVersion(dbc, table, id, current, merged)
	if err != nil {
		return current, err
	}
	if err := RequireCASSuccess(ok, "project was modified concurrently"); err != nil {
		return current, err
	}
	return next, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireVersionMatch rejects a stale expected version with a conflict.
func RequireVersionMatch(current, expected int) error {
	if expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if current != expected {
		return ConflictError("version mismatch")
	}
	return nil
}

// requireExpectedVersion is RequireVersionMatch for an optional expectation.
func requireExpectedVersion(current int, expected *int) error {
	if expected == nil {
		return nil
	}
	return RequireVersionMatch(current, *expected)
}
