package user

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
	MaxRoleLength    = 30
)

type FieldErrors = portfolio.FieldErrors

type UserFields struct {
	Username string
	Email    string
	Password string
	Role     string
}

// UserPatch holds optional updates. Nil and blank values mean unchanged.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	Role     *string
}

func (f UserFields) Normalize() UserFields {
	return UserFields{
		Username: strings.TrimSpace(f.Username),
		Email:    NormalizeEmail(f.Email),
		Password: f.Password,
		Role:     strings.ToUpper(strings.TrimSpace(f.Role)),
	}
}

func (f UserFields) Validate() error {
	fe := FieldErrors{}
	checkUsername(fe, f.Username)
	checkEmail(fe, f.Email)
	checkPassword(fe, f.Password)
	checkRole(fe, f.Role)
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Normalize trims the patch and drops blank entries.
func (p UserPatch) Normalize() UserPatch {
	var out UserPatch
	if v := strings.TrimSpace(deref(p.Username)); v != "" {
		out.Username = &v
	}
	if v := NormalizeEmail(deref(p.Email)); v != "" {
		out.Email = &v
	}
	if v := deref(p.Password); v != "" {
		out.Password = &v
	}
	if v := strings.ToUpper(strings.TrimSpace(deref(p.Role))); v != "" {
		out.Role = &v
	}
	return out
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil && p.Role == nil
}

func (p UserPatch) Validate() error {
	fe := FieldErrors{}
	if p.Username != nil {
		checkUsername(fe, *p.Username)
	}
	if p.Email != nil {
		checkEmail(fe, *p.Email)
	}
	if p.Password != nil {
		checkPassword(fe, *p.Password)
	}
	if p.Role != nil {
		checkRole(fe, *p.Role)
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkUsername(fe FieldErrors, username string) {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	switch {
	case n == 0:
		fe["username"] = "Username is required"
	case n < MinUsernameLength || n > MaxUsernameLength:
		fe["username"] = "Username must be between 3 and 50 characters"
	}
}

func checkEmail(fe FieldErrors, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		fe["email"] = "Email is required"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fe["email"] = "Email must be a valid address"
	}
}

func checkPassword(fe FieldErrors, password string) {
	switch {
	case password == "":
		fe["password"] = "Password is required"
	case utf8.RuneCountInString(password) < MinPasswordLength:
		fe["password"] = "Password must be at least 8 characters"
	case len(password) > MaxPasswordBytes:
		fe["password"] = "Password may be at most 72 bytes"
	}
}

func checkRole(fe FieldErrors, role string) {
	n := utf8.RuneCountInString(strings.TrimSpace(role))
	switch {
	case n == 0:
		fe["role"] = "Role is required"
	case n > MaxRoleLength:
		fe["role"] = "Role may be at most 30 characters"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
