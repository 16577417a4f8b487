package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/portfolio-backend/internal/domain/portfolio"
)

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, wt types.WorkType, ct types.CustomerType, created time.Time) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:            uuid.New(),
		Title:         "Project " + string(wt),
		Description:   "seeded",
		WorkType:      wt,
		CustomerType:  ct,
		ExecutionDate: types.DateOf(created.AddDate(0, 0, -3)),
		CreationDate:  types.DateOf(created),
		Version:       1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedImage(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, seq int64, it types.ImageType, url string) *types.Image {
	tb.Helper()
	img := &types.Image{
		ID:        uuid.New(),
		ProjectID: projectID,
		Seq:       seq,
		URL:       url,
		ImageType: it,
	}
	if err := tx.WithContext(ctx).Create(img).Error; err != nil {
		tb.Fatalf("seed image: %v", err)
	}
	return img
}
