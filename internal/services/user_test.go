package services

import (
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/portfolio-backend/internal/data/aggregates"
	userrepo "github.com/yungbote/portfolio-backend/internal/data/repos/user"
	repotest "github.com/yungbote/portfolio-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	types "github.com/yungbote/portfolio-backend/internal/domain/user"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
)

func newUserEnv(t *testing.T) (UserService, userrepo.UserRepo) {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	users := userrepo.NewUserRepo(db, log)
	return NewUserService(log, aggregates.NewGormTxRunner(db), users, bcrypt.MinCost), users
}

func mette() types.UserFields {
	return types.UserFields{Username: "mette", Email: "Mette@Example.com", Password: "correct horse", Role: "admin"}
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, users := newUserEnv(t)

	view, err := svc.CreateUser(bg(), mette())
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if view.Email != "mette@example.com" || view.Role != "ADMIN" {
		t.Fatalf("view not normalized: %+v", view)
	}
	row, err := users.GetByID(dbctx.Context{Ctx: bg()}, view.ID)
	if err != nil || row == nil {
		t.Fatalf("GetByID: row=%v err=%v", row, err)
	}
	if row.PasswordHash == "correct horse" {
		t.Fatalf("password stored in clear text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("stored hash does not match: %v", err)
	}
}

func TestCreateUserRejectsDuplicatesAndInvalidInput(t *testing.T) {
	svc, _ := newUserEnv(t)
	if _, err := svc.CreateUser(bg(), mette()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dupName := mette()
	dupName.Email = "other@example.com"
	_, err := svc.CreateUser(bg(), dupName)
	if domainagg.CodeOf(err) != domainagg.CodeConflict || domainagg.MessageOf(err) != "Username already exists" {
		t.Fatalf("duplicate username: got=%v", err)
	}

	dupEmail := mette()
	dupEmail.Username = "mette2"
	dupEmail.Email = "METTE@example.com"
	_, err = svc.CreateUser(bg(), dupEmail)
	if domainagg.MessageOf(err) != "Email already exists" {
		t.Fatalf("duplicate email: got=%v", err)
	}

	_, err = svc.CreateUser(bg(), types.UserFields{Username: "x"})
	if domainagg.KindOf(err) != domainagg.KindInvalidInput {
		t.Fatalf("invalid input: got=%v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	svc, users := newUserEnv(t)
	a, err := svc.CreateUser(bg(), mette())
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	b, err := svc.CreateUser(bg(), types.UserFields{Username: "anders", Email: "anders@example.com", Password: "hunter2hunter2", Role: "editor"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	blank := ""
	own := "mette@example.com"
	role := "editor"
	pw := "new password"
	got, err := svc.UpdateUser(bg(), a.ID, types.UserPatch{Username: &blank, Email: &own, Role: &role, Password: &pw})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.Username != "mette" || got.Role != "EDITOR" {
		t.Fatalf("update mismatch: %+v", got)
	}
	row, _ := users.GetByID(dbctx.Context{Ctx: bg()}, a.ID)
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(pw)) != nil {
		t.Fatalf("password was not rehashed")
	}

	taken := "anders"
	_, err = svc.UpdateUser(bg(), a.ID, types.UserPatch{Username: &taken})
	if domainagg.CodeOf(err) != domainagg.CodeConflict {
		t.Fatalf("taken username: want conflict got=%v", err)
	}
	unchanged, _ := svc.GetUser(bg(), b.ID)
	if unchanged.Username != "anders" {
		t.Fatalf("other user changed: %+v", unchanged)
	}

	_, err = svc.UpdateUser(bg(), uuid.New(), types.UserPatch{Role: &role})
	if domainagg.KindOf(err) != domainagg.KindNotFound {
		t.Fatalf("missing user: got=%v", err)
	}
}

func TestListAndDeleteUsers(t *testing.T) {
	svc, _ := newUserEnv(t)
	a, _ := svc.CreateUser(bg(), mette())
	if _, err := svc.CreateUser(bg(), types.UserFields{Username: "anders", Email: "anders@example.com", Password: "hunter2hunter2", Role: "editor"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	list, err := svc.ListUsers(bg())
	if err != nil || len(list) != 2 || list[0].Username != "anders" {
		t.Fatalf("ListUsers: got=%v err=%v", list, err)
	}

	if err := svc.DeleteUser(bg(), a.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	err = svc.DeleteUser(bg(), a.ID)
	if domainagg.KindOf(err) != domainagg.KindNotFound || domainagg.MessageOf(err) != "User not found with id: "+a.ID.String() {
		t.Fatalf("second delete: got=%v", err)
	}
	if _, err := svc.GetUser(bg(), a.ID); domainagg.KindOf(err) != domainagg.KindNotFound {
		t.Fatalf("GetUser after delete: got=%v", err)
	}
}
