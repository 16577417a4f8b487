package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/domain/user"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Project{},
		&types.Image{},
		&user.User{},
	)
}
