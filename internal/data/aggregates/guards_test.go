package aggregates

import (
	"context"
	"testing"
	"time"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	repotest "github.com/yungbote/portfolio-backend/internal/data/repos/testutil"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
)

func TestRequireVersionMatch(t *testing.T) {
	if err := RequireVersionMatch(3, 3); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireVersionMatch(2, 3); err == nil {
		t.Fatalf("expected conflict error")
	}
	if err := RequireVersionMatch(2, -1); !domainagg.IsCode(MapError("op", err), domainagg.CodeValidation) {
		t.Fatalf("negative expectation should be validation, got %v", err)
	}
}

func TestRequireExpectedVersion(t *testing.T) {
	if err := requireExpectedVersion(4, nil); err != nil {
		t.Fatalf("nil expectation must pass: %v", err)
	}
	v := 3
	if err := requireExpectedVersion(4, &v); !domainagg.IsCode(MapError("op", err), domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireCASSuccess(false, "stale"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestCASGuardBumpVersion(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	seed := repotest.SeedProject(t, ctx, db, portfolio.WorkTypeRoofCleaning, portfolio.CustomerTypePrivate, time.Now())

	guard := NewCASGuard(db)
	dbc := dbctx.Background(ctx)

	next, err := guard.BumpVersion(dbc, "project", seed.ID, seed.Version, map[string]any{"title": "Renamed"})
	if err != nil {
		t.Fatalf("BumpVersion: %v", err)
	}
	if next != seed.Version+1 {
		t.Fatalf("version: want=%d got=%d", seed.Version+1, next)
	}

	// The stale version loses.
	if _, err := guard.BumpVersion(dbc, "project", seed.ID, seed.Version, nil); !domainagg.IsCode(MapError("op", err), domainagg.CodeConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	var row portfolio.Project
	if err := db.First(&row, "id = ?", seed.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.Title != "Renamed" || row.Version != next {
		t.Fatalf("unexpected row title=%q version=%d", row.Title, row.Version)
	}
}
