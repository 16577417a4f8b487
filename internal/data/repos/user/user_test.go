package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	repotest "github.com/yungbote/portfolio-backend/internal/data/repos/testutil"
	types "github.com/yungbote/portfolio-backend/internal/domain/user"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
)

func TestUserRepoLifecycle(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	repo := NewUserRepo(tx, repotest.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	rows, err := repo.Create(dbc, []*types.User{
		{Username: "mette", Email: "mette@example.com", PasswordHash: "x", Role: "ADMIN"},
		{Username: "anders", Email: "anders@example.com", PasswordHash: "x", Role: "EDITOR"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mette := rows[0]
	if mette.ID == uuid.Nil {
		t.Fatalf("Create should assign ids")
	}

	all, err := repo.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].Username != "anders" {
		t.Fatalf("List should order by username, got=%v", len(all))
	}

	taken, err := repo.UsernameExists(dbc, "mette", uuid.Nil)
	if err != nil || !taken {
		t.Fatalf("UsernameExists: want=true got=%v err=%v", taken, err)
	}
	own, err := repo.EmailExists(dbc, "mette@example.com", mette.ID)
	if err != nil || own {
		t.Fatalf("EmailExists excluding self: want=false got=%v err=%v", own, err)
	}

	if err := repo.UpdateFields(dbc, mette.ID, map[string]interface{}{"role": "EDITOR"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, mette.ID)
	if err != nil || got == nil || got.Role != "EDITOR" {
		t.Fatalf("GetByID after update: got=%+v err=%v", got, err)
	}

	n, err := repo.Delete(dbc, mette.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete: want=1 got=%d err=%v", n, err)
	}
	missing, err := repo.GetByID(dbc, mette.ID)
	if err != nil || missing != nil {
		t.Fatalf("deleted user should be gone, got=%+v err=%v", missing, err)
	}
}

func TestUserRepoUniqueUsername(t *testing.T) {
	db := repotest.DB(t)
	repo := NewUserRepo(db, repotest.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := repo.Create(dbc, []*types.User{{Username: "mette", Email: "a@example.com", PasswordHash: "x", Role: "ADMIN"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, []*types.User{{Username: "mette", Email: "b@example.com", PasswordHash: "x", Role: "ADMIN"}}); err == nil {
		t.Fatalf("duplicate username should violate the unique index")
	}
}
