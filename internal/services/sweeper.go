package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	repos "github.com/yungbote/portfolio-backend/internal/data/repos/portfolio"
	"github.com/yungbote/portfolio-backend/internal/observability"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
	"github.com/yungbote/portfolio-backend/internal/platform/locks"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const (
	defaultSweepGrace       = time.Hour
	defaultSweepConcurrency = 4
	defaultSweepTimeout     = 30 * time.Second
)

type SweeperConfig struct {
	// Blobs younger than GracePeriod are kept; an in-flight upload may not have its record yet.
	GracePeriod   time.Duration
	Concurrency   int
	DeleteTimeout time.Duration
	// DryRun reports orphans without deleting them.
	DryRun bool
	Now    func() time.Time
}

type SweepResult struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	TooYoung   int      `json:"tooYoung"`
	Orphans    []string `json:"orphans"`
	Kept       int      `json:"kept"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
}

// OrphanSweeper removes blobs that no image record references.
type OrphanSweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

type orphanSweeper struct {
	log     *logger.Logger
	images  repos.ImageRepo
	store   imagestore.Store
	locker  locks.Locker
	metrics *observability.Metrics
	cfg     SweeperConfig
}

func NewOrphanSweeper(
	baseLog *logger.Logger,
	images repos.ImageRepo,
	store imagestore.Store,
	locker locks.Locker,
	metrics *observability.Metrics,
	cfg SweeperConfig,
) OrphanSweeper {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultSweepGrace
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultSweepConcurrency
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = defaultSweepTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if locker == nil {
		locker = locks.NewLocal()
	}
	return &orphanSweeper{
		log:     baseLog.With("service", "OrphanSweeper"),
		images:  images,
		store:   store,
		locker:  locker,
		metrics: metrics,
		cfg:     cfg,
	}
}

func (s *orphanSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	// List blobs before reading references: a blob stored after the listing is not a
	// candidate, and one whose record commits after it is still inside the grace period.
	blobs, err := s.store.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list blobs: %w", err)
	}
	urls, err := s.images.ListReferencedURLs(dbctx.Context{Ctx: ctx})
	if err != nil {
		return res, fmt.Errorf("list referenced urls: %w", err)
	}
	referenced := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		referenced[u] = struct{}{}
	}

	cutoff := s.cfg.Now().Add(-s.cfg.GracePeriod)
	for _, b := range blobs {
		res.Scanned++
		if _, ok := referenced[b.Ref]; ok {
			res.Referenced++
			continue
		}
		if b.ModTime.After(cutoff) {
			res.TooYoung++
			continue
		}
		res.Orphans = append(res.Orphans, b.Ref)
	}

	if s.cfg.DryRun || len(res.Orphans) == 0 {
		s.report(res)
		return res, nil
	}

	var deleted, kept, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, ref := range res.Orphans {
		g.Go(func() error {
			if gctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			dctx, cancel := context.WithTimeout(gctx, s.cfg.DeleteTimeout)
			defer cancel()
			removed, err := s.deleteOrphan(dctx, ref)
			switch {
			case err != nil:
				failed.Add(1)
				s.log.Warn("Orphan delete failed", "ref", ref, "error", err)
			case removed:
				deleted.Add(1)
			default:
				kept.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	res.Deleted = int(deleted.Load())
	res.Kept = int(kept.Load())
	res.Failed = int(failed.Load())
	s.report(res)
	return res, ctx.Err()
}

// deleteOrphan re-reads the references under the blob lock; a url patch may have
// adopted the blob since the reference scan.
func (s *orphanSweeper) deleteOrphan(ctx context.Context, ref string) (bool, error) {
	release, err := s.locker.Lock(ctx, locks.BlobKey(ref))
	if err != nil {
		return false, err
	}
	defer release()
	n, err := s.images.CountByURL(dbctx.Context{Ctx: ctx}, ref, uuid.Nil)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, s.store.Delete(ctx, ref)
}

func (s *orphanSweeper) report(res SweepResult) {
	s.metrics.ObserveSweep("scanned", res.Scanned)
	s.metrics.ObserveSweep("deleted", res.Deleted)
	s.metrics.ObserveSweep("failed", res.Failed)
	s.log.Info("Orphan sweep finished",
		"scanned", res.Scanned,
		"referenced", res.Referenced,
		"too_young", res.TooYoung,
		"orphans", len(res.Orphans),
		"kept", res.Kept,
		"deleted", res.Deleted,
		"failed", res.Failed,
		"dry_run", s.cfg.DryRun,
	)
}
