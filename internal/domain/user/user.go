package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a back-office account. Requests are not authenticated against it.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Username string `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email    string `gorm:"column:email;not null;uniqueIndex" json:"email"`
	// bcrypt hash; never serialized.
	PasswordHash string `gorm:"column:password;not null" json:"-"`
	Role         string `gorm:"column:role;not null" json:"role"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "user" }
