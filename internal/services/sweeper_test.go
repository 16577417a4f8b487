package services

import (
	"testing"
	"time"

	"github.com/yungbote/portfolio-backend/internal/data/aggregates"
	repos "github.com/yungbote/portfolio-backend/internal/data/repos/portfolio"
	repotest "github.com/yungbote/portfolio-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/observability"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore/storetest"
	"github.com/yungbote/portfolio-backend/internal/platform/locks"
)

func TestSweepDeletesOnlyOldUnreferencedBlobs(t *testing.T) {
	e := newEnv(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := repotest.SeedProject(t, bg(), e.db, portfolio.WorkTypePavingCleaning, portfolio.CustomerTypePrivate, now)
	repotest.SeedImage(t, bg(), e.db, p.ID, 1, portfolio.ImageTypeBefore, "/uploads/kept.jpg")

	e.store.Put("/uploads/kept.jpg", []byte("k"), now.Add(-48*time.Hour))
	e.store.Put("/uploads/orphan.jpg", []byte("o"), now.Add(-2*time.Hour))
	e.store.Put("/uploads/fresh.jpg", []byte("f"), now.Add(-5*time.Minute))

	metrics := observability.New()
	sw := NewOrphanSweeper(repotest.Logger(t), e.images, e.store, nil, metrics, SweeperConfig{
		GracePeriod: time.Hour,
		Now:         func() time.Time { return now },
	})
	res, err := sw.Sweep(bg())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 3 || res.Referenced != 1 || res.TooYoung != 1 || res.Deleted != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Orphans) != 1 || res.Orphans[0] != "/uploads/orphan.jpg" {
		t.Fatalf("orphans: %v", res.Orphans)
	}
	refs := e.store.Refs()
	if len(refs) != 2 || refs[0] != "/uploads/fresh.jpg" || refs[1] != "/uploads/kept.jpg" {
		t.Fatalf("remaining blobs: %v", refs)
	}
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	e.store.Put("/uploads/orphan.jpg", []byte("o"), now.Add(-24*time.Hour))

	sw := NewOrphanSweeper(repotest.Logger(t), e.images, e.store, nil, nil, SweeperConfig{DryRun: true})
	res, err := sw.Sweep(bg())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(res.Orphans) != 1 || res.Deleted != 0 || e.store.Len() != 1 {
		t.Fatalf("dry run touched the store: %+v", res)
	}
}

func TestSweepCountsDeleteFailures(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	e.store.Put("/uploads/a.jpg", []byte("a"), now.Add(-3*time.Hour))
	e.store.Put("/uploads/b.jpg", []byte("b"), now.Add(-3*time.Hour))
	faulty := &storetest.Faulty{Inner: e.store, FailDeletes: true}

	sw := NewOrphanSweeper(repotest.Logger(t), e.images, faulty, nil, nil, SweeperConfig{Concurrency: 1})
	res, err := sw.Sweep(bg())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Failed != 2 || res.Deleted != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(faulty.Deleted()) != 2 {
		t.Fatalf("delete attempts: want=2 got=%d", len(faulty.Deleted()))
	}
}

// listHookImages runs afterList once the sweeper has read the referenced urls.
type listHookImages struct {
	repos.ImageRepo
	afterList func()
}

func (r *listHookImages) ListReferencedURLs(dbc dbctx.Context) ([]string, error) {
	urls, err := r.ImageRepo.ListReferencedURLs(dbc)
	if err == nil && r.afterList != nil {
		r.afterList()
	}
	return urls, err
}

func TestSweepKeepsBlobAdoptedAfterReferenceScan(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	locker := locks.NewLocal()
	log := repotest.Logger(t)

	p := repotest.SeedProject(t, bg(), e.db, portfolio.WorkTypeRoofCleaning, portfolio.CustomerTypePrivate, now)
	img := repotest.SeedImage(t, bg(), e.db, p.ID, 1, portfolio.ImageTypeBefore, "/uploads/before.jpg")
	repotest.SeedImage(t, bg(), e.db, p.ID, 2, portfolio.ImageTypeAfter, "/uploads/after.jpg")
	e.store.Put("/uploads/before.jpg", []byte("b"), now)
	e.store.Put("/uploads/after.jpg", []byte("a"), now)
	orphan := "/uploads/replacement.jpg"
	e.store.Put(orphan, []byte("r"), now.Add(-2*time.Hour))

	agg := aggregates.NewProjectAggregate(aggregates.ProjectAggregateDeps{
		Base:        aggregates.BaseDeps{DB: e.db, Log: log},
		Projects:    e.projects,
		Images:      e.images,
		Store:       e.store,
		Locker:      locker,
		AdoptWindow: 3 * time.Hour,
	})
	var patchErr error
	images := &listHookImages{ImageRepo: e.images, afterList: func() {
		_, patchErr = agg.UpdateImageMetadata(bg(), domainagg.UpdateImageMetadataInput{
			ProjectID: p.ID, ImageID: img.ID, Patch: domainagg.ImagePatch{URL: &orphan},
		})
	}}

	sw := NewOrphanSweeper(log, images, e.store, locker, nil, SweeperConfig{GracePeriod: time.Hour})
	res, err := sw.Sweep(bg())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if patchErr != nil {
		t.Fatalf("url patch: %v", patchErr)
	}
	if len(res.Orphans) != 1 || res.Orphans[0] != orphan {
		t.Fatalf("orphans: want=[%s] got=%v", orphan, res.Orphans)
	}
	if res.Kept != 1 || res.Deleted != 0 {
		t.Fatalf("adopted blob must be kept: %+v", res)
	}
	if ok, _ := e.store.Exists(bg(), orphan); !ok {
		t.Fatalf("image record points at missing blob %s", orphan)
	}
	if ok, _ := e.store.Exists(bg(), "/uploads/before.jpg"); ok {
		t.Fatalf("replaced blob should be deleted after commit")
	}
}
