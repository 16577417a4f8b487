package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/portfolio-backend/internal/data/aggregates"
	repos "github.com/yungbote/portfolio-backend/internal/data/repos/portfolio"
	repotest "github.com/yungbote/portfolio-backend/internal/data/repos/testutil"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore/storetest"
)

type env struct {
	db       *gorm.DB
	store    *storetest.Memory
	projects repos.ProjectRepo
	images   repos.ImageRepo
	svc      ProjectService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	e := &env{
		db:       db,
		store:    storetest.NewMemory(),
		projects: repos.NewProjectRepo(db, log),
		images:   repos.NewImageRepo(db, log),
	}
	agg := aggregates.NewProjectAggregate(aggregates.ProjectAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db, Log: log},
		Projects: e.projects,
		Images:   e.images,
		Store:    e.store,
	})
	e.svc = NewProjectService(log, e.projects, e.images, agg)
	return e
}

var day = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func bg() context.Context { return context.Background() }
