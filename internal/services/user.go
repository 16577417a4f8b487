package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dataagg "github.com/yungbote/portfolio-backend/internal/data/aggregates"
	repos "github.com/yungbote/portfolio-backend/internal/data/repos/user"
	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	types "github.com/yungbote/portfolio-backend/internal/domain/user"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

type UserView struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

func NewUserView(u types.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

type UserService interface {
	CreateUser(ctx context.Context, fields types.UserFields) (*UserView, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserView, error)
	ListUsers(ctx context.Context) ([]UserView, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch types.UserPatch) (*UserView, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	log    *logger.Logger
	runner dataagg.TxRunner
	users  repos.UserRepo
	cost   int
}

// NewUserService hashes passwords with bcrypt at cost; zero means bcrypt.DefaultCost.
func NewUserService(baseLog *logger.Logger, runner dataagg.TxRunner, users repos.UserRepo, cost int) UserService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		log:    baseLog.With("service", "UserService"),
		runner: runner,
		users:  users,
		cost:   cost,
	}
}

func (s *userService) CreateUser(ctx context.Context, fields types.UserFields) (*UserView, error) {
	const op = "Portfolio.User.Create"
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(fields.Password), s.cost)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "hash password", err)
	}

	row := &types.User{
		ID:           uuid.New(),
		Username:     fields.Username,
		Email:        fields.Email,
		PasswordHash: string(hash),
		Role:         fields.Role,
	}
	err = s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.checkUnique(dbc, op, &fields.Username, &fields.Email, uuid.Nil); err != nil {
			return err
		}
		_, err := s.users.Create(dbc, []*types.User{row})
		return err
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.log.Info("User created", "user_id", row.ID, "role", row.Role)
	view := NewUserView(*row)
	return &view, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*UserView, error) {
	const op = "Portfolio.User.Get"
	u, err := s.load(dbctx.Context{Ctx: ctx}, op, id)
	if err != nil {
		return nil, err
	}
	view := NewUserView(*u)
	return &view, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]UserView, error) {
	const op = "Portfolio.User.List"
	rows, err := s.users.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	out := make([]UserView, 0, len(rows))
	for _, u := range rows {
		out = append(out, NewUserView(*u))
	}
	return out, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, patch types.UserPatch) (*UserView, error) {
	const op = "Portfolio.User.Update"
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	updates := map[string]interface{}{}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.cost)
		if err != nil {
			return nil, domainagg.NewError(domainagg.CodeInternal, op, "hash password", err)
		}
		updates["password"] = string(hash)
	}

	var out types.User
	err := s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		u, err := s.load(dbc, op, id)
		if err != nil {
			return err
		}
		if err := s.checkUnique(dbc, op, patch.Username, patch.Email, id); err != nil {
			return err
		}
		if patch.Username != nil {
			updates["username"] = *patch.Username
			u.Username = *patch.Username
		}
		if patch.Email != nil {
			updates["email"] = *patch.Email
			u.Email = *patch.Email
		}
		if patch.Role != nil {
			updates["role"] = *patch.Role
			u.Role = *patch.Role
		}
		if err := s.users.UpdateFields(dbc, id, updates); err != nil {
			return err
		}
		out = *u
		return nil
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	view := NewUserView(out)
	return &view, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "Portfolio.User.Delete"
	n, err := s.users.Delete(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return dataagg.MapError(op, err)
	}
	if n == 0 {
		return notFoundUser(op, id)
	}
	s.log.Info("User deleted", "user_id", id)
	return nil
}

func (s *userService) load(dbc dbctx.Context, op string, id uuid.UUID) (*types.User, error) {
	u, err := s.users.GetByID(dbc, id)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if u == nil {
		return nil, notFoundUser(op, id)
	}
	return u, nil
}

// checkUnique reports a conflict when another user already holds username or email.
func (s *userService) checkUnique(dbc dbctx.Context, op string, username, email *string, self uuid.UUID) error {
	if username != nil {
		taken, err := s.users.UsernameExists(dbc, *username, self)
		if err != nil {
			return err
		}
		if taken {
			return domainagg.NewError(domainagg.CodeConflict, op, "Username already exists", nil)
		}
	}
	if email != nil {
		taken, err := s.users.EmailExists(dbc, *email, self)
		if err != nil {
			return err
		}
		if taken {
			return domainagg.NewError(domainagg.CodeConflict, op, "Email already exists", nil)
		}
	}
	return nil
}

func notFoundUser(op string, id uuid.UUID) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("User not found with id: %s", id), nil)
}
