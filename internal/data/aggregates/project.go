package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	repos "github.com/yungbote/portfolio-backend/internal/data/repos/portfolio"
	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
	"github.com/yungbote/portfolio-backend/internal/platform/locks"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const (
	defaultStoreTimeout       = 2 * time.Minute
	defaultDeleteTimeout      = 30 * time.Second
	defaultCleanupConcurrency = 4
	defaultAdoptWindow        = time.Hour
)

var tracer = otel.Tracer("github.com/yungbote/portfolio-backend/internal/data/aggregates")

type ProjectAggregateDeps struct {
	Base BaseDeps

	Projects repos.ProjectRepo
	Images   repos.ImageRepo
	Store    imagestore.Store
	// Locker serializes writes per project. Defaults to an in-process lock.
	Locker locks.Locker

	StoreTimeout       time.Duration
	DeleteTimeout      time.Duration
	CleanupConcurrency int
	// AdoptWindow bounds the age of an unreferenced blob a url patch may point at.
	// Older unreferenced blobs are sweep candidates and stay garbage.
	AdoptWindow time.Duration
	Now         func() time.Time
}

type projectAggregate struct {
	deps ProjectAggregateDeps
	log  *logger.Logger
}

func NewProjectAggregate(deps ProjectAggregateDeps) domainagg.ProjectAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Locker == nil {
		deps.Locker = locks.NewLocal()
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = defaultStoreTimeout
	}
	if deps.DeleteTimeout <= 0 {
		deps.DeleteTimeout = defaultDeleteTimeout
	}
	if deps.CleanupConcurrency <= 0 {
		deps.CleanupConcurrency = defaultCleanupConcurrency
	}
	if deps.AdoptWindow <= 0 {
		deps.AdoptWindow = defaultAdoptWindow
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &projectAggregate{deps: deps, log: deps.Base.Log.With("aggregate", "ProjectAggregate")}
}

func (a *projectAggregate) Contract() domainagg.Contract {
	return domainagg.ProjectAggregateContract
}

func (a *projectAggregate) CreateProject(ctx context.Context, in domainagg.CreateProjectInput) (out domainagg.ProjectSnapshot, err error) {
	const op = "Portfolio.Project.Create"
	start := time.Now()
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := a.configured(op); err != nil {
		return out, err
	}
	fields := in.Fields
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Description = strings.TrimSpace(fields.Description)
	if err := fields.Validate(); err != nil {
		return out, a.reject(op, start, AsValidation(err))
	}
	if err := validateUploads(in.Images, in.Metadata); err != nil {
		return out, a.reject(op, start, err)
	}
	if err := portfolio.ValidateCreationSet(metaTypes(in.Metadata)); err != nil {
		return out, a.reject(op, start, AsInvariant(err))
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = a.deps.Now()
	}

	comp := a.compensation(op)
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p := &portfolio.Project{
			ID:            uuid.New(),
			Title:         fields.Title,
			Description:   fields.Description,
			WorkType:      fields.WorkType,
			CustomerType:  fields.CustomerType,
			ExecutionDate: fields.ExecutionDate,
			CreationDate:  portfolio.DateOf(createdAt),
			Version:       1,
		}
		if _, err := a.deps.Projects.Create(dbc, []*portfolio.Project{p}); err != nil {
			return err
		}
		span.SetAttributes(attribute.String("project.id", p.ID.String()))
		if err := a.storeImages(dbc, comp, p.ID, 0, in.Images, in.Metadata); err != nil {
			return err
		}
		snap, err := a.snapshot(dbc, p)
		out = snap
		return err
	})
	if err != nil {
		comp.run(ctx)
		return domainagg.ProjectSnapshot{}, err
	}
	a.log.Info("Project created", "project_id", out.Project.ID, "images", len(out.Images))
	return out, nil
}

func (a *projectAggregate) AddImages(ctx context.Context, in domainagg.AddImagesInput) (out domainagg.ProjectSnapshot, err error) {
	const op = "Portfolio.Project.AddImages"
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("project.id", in.ProjectID.String())))
	defer func() { endSpan(span, err) }()

	if err := a.configured(op); err != nil {
		return out, err
	}
	if err := validateUploads(in.Images, in.Metadata); err != nil {
		return out, a.reject(op, start, err)
	}
	release, err := a.lock(ctx, in.ProjectID)
	if err != nil {
		return out, a.reject(op, start, err)
	}
	defer release()

	comp := a.compensation(op)
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.lockProject(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if err := requireExpectedVersion(p.Version, in.ExpectedVersion); err != nil {
			return err
		}
		maxSeq, err := a.deps.Images.GetMaxSeq(dbc, p.ID)
		if err != nil {
			return err
		}
		if err := a.storeImages(dbc, comp, p.ID, maxSeq, in.Images, in.Metadata); err != nil {
			return err
		}
		if err := a.bump(dbc, p, nil); err != nil {
			return err
		}
		snap, err := a.snapshot(dbc, p)
		out = snap
		return err
	})
	if err != nil {
		comp.run(ctx)
		return domainagg.ProjectSnapshot{}, err
	}
	return out, nil
}

func (a *projectAggregate) UpdateImageMetadata(ctx context.Context, in domainagg.UpdateImageMetadataInput) (out domainagg.ProjectSnapshot, err error) {
	const op = "Portfolio.Project.UpdateImageMetadata"
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("project.id", in.ProjectID.String()),
		attribute.String("image.id", in.ImageID.String()),
	))
	defer func() { endSpan(span, err) }()

	if err := a.configured(op); err != nil {
		return out, err
	}
	patch := in.Patch
	if patch.ImageType != nil && !patch.ImageType.Valid() {
		return out, a.reject(op, start, ValidationError(fmt.Sprintf("Unknown image type: %s", *patch.ImageType)))
	}
	newURL := ""
	if patch.URL != nil {
		newURL = strings.TrimSpace(*patch.URL)
		if newURL == "" {
			return out, a.reject(op, start, ValidationError("Image url must not be empty"))
		}
	}

	release, err := a.lock(ctx, in.ProjectID)
	if err != nil {
		return out, a.reject(op, start, err)
	}
	defer release()
	if newURL != "" {
		// Held until commit so a sweep cannot delete the blob this patch adopts.
		releaseBlob, err := a.deps.Locker.Lock(ctx, locks.BlobKey(newURL))
		if err != nil {
			return out, a.reject(op, start, err)
		}
		defer releaseBlob()
	}

	var staleRef string
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		staleRef = ""
		p, err := a.lockProject(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if err := requireExpectedVersion(p.Version, in.ExpectedVersion); err != nil {
			return err
		}
		img, err := a.projectImage(dbc, p.ID, in.ImageID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if patch.ImageType != nil && *patch.ImageType != img.ImageType {
			images, err := a.deps.Images.ListByProjectID(dbc, p.ID)
			if err != nil {
				return err
			}
			if err := portfolio.ValidateTypeChange(images, img.ID, *patch.ImageType); err != nil {
				return AsInvariant(err)
			}
			updates["image_type"] = *patch.ImageType
		}
		if patch.IsFeatured != nil && *patch.IsFeatured != img.IsFeatured {
			updates["is_featured"] = *patch.IsFeatured
		}
		if patch.URL != nil && newURL != img.URL {
			if err := a.checkReplacementURL(dbc, img.ID, newURL); err != nil {
				return err
			}
			updates["url"] = newURL
			others, err := a.deps.Images.CountByURL(dbc, img.URL, img.ID)
			if err != nil {
				return err
			}
			if others == 0 {
				staleRef = img.URL
			}
		}

		if len(updates) > 0 {
			if err := a.deps.Images.UpdateFields(dbc, img.ID, updates); err != nil {
				return err
			}
			if err := a.bump(dbc, p, nil); err != nil {
				return err
			}
		}
		snap, err := a.snapshot(dbc, p)
		out = snap
		return err
	})
	if err != nil {
		return domainagg.ProjectSnapshot{}, err
	}
	if staleRef != "" {
		a.deleteBlobs(ctx, op, []string{staleRef})
	}
	return out, nil
}

func (a *projectAggregate) RemoveImage(ctx context.Context, in domainagg.RemoveImageInput) (out domainagg.ProjectSnapshot, err error) {
	const op = "Portfolio.Project.RemoveImage"
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("project.id", in.ProjectID.String()),
		attribute.String("image.id", in.ImageID.String()),
	))
	defer func() { endSpan(span, err) }()

	if err := a.configured(op); err != nil {
		return out, err
	}
	release, err := a.lock(ctx, in.ProjectID)
	if err != nil {
		return out, a.reject(op, start, err)
	}
	defer release()

	var removedRef string
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		removedRef = ""
		p, err := a.lockProject(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if err := requireExpectedVersion(p.Version, in.ExpectedVersion); err != nil {
			return err
		}
		img, err := a.projectImage(dbc, p.ID, in.ImageID)
		if err != nil {
			return err
		}
		images, err := a.deps.Images.ListByProjectID(dbc, p.ID)
		if err != nil {
			return err
		}
		if err := portfolio.ValidateRemoval(images, img.ID); err != nil {
			return AsInvariant(err)
		}
		if _, err := a.deps.Images.DeleteByID(dbc, img.ID); err != nil {
			return err
		}
		others, err := a.deps.Images.CountByURL(dbc, img.URL, uuid.Nil)
		if err != nil {
			return err
		}
		if others == 0 {
			removedRef = img.URL
		}
		if err := a.bump(dbc, p, nil); err != nil {
			return err
		}
		snap, err := a.snapshot(dbc, p)
		out = snap
		return err
	})
	if err != nil {
		return domainagg.ProjectSnapshot{}, err
	}
	if removedRef != "" {
		a.deleteBlobs(ctx, op, []string{removedRef})
	}
	return out, nil
}

func (a *projectAggregate) UpdateProject(ctx context.Context, in domainagg.UpdateProjectInput) (out domainagg.ProjectSnapshot, err error) {
	const op = "Portfolio.Project.Update"
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("project.id", in.ProjectID.String())))
	defer func() { endSpan(span, err) }()

	if err := a.configured(op); err != nil {
		return out, err
	}
	if err := in.Patch.Validate(); err != nil {
		return out, a.reject(op, start, AsValidation(err))
	}
	release, err := a.lock(ctx, in.ProjectID)
	if err != nil {
		return out, a.reject(op, start, err)
	}
	defer release()

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.lockProject(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if err := requireExpectedVersion(p.Version, in.ExpectedVersion); err != nil {
			return err
		}
		if !in.Patch.Empty() {
			in.Patch.Apply(p)
			if err := a.bump(dbc, p, map[string]any{
				"title":          p.Title,
				"description":    p.Description,
				"work_type":      p.WorkType,
				"customer_type":  p.CustomerType,
				"execution_date": p.ExecutionDate,
			}); err != nil {
				return err
			}
		}
		snap, err := a.snapshot(dbc, p)
		out = snap
		return err
	})
	if err != nil {
		return domainagg.ProjectSnapshot{}, err
	}
	return out, nil
}

func (a *projectAggregate) DeleteProject(ctx context.Context, in domainagg.DeleteProjectInput) (out domainagg.DeleteProjectResult, err error) {
	const op = "Portfolio.Project.Delete"
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("project.id", in.ProjectID.String())))
	defer func() { endSpan(span, err) }()

	if err := a.configured(op); err != nil {
		return out, err
	}
	release, err := a.lock(ctx, in.ProjectID)
	if err != nil {
		return out, a.reject(op, start, err)
	}
	defer release()

	var refs []string
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		refs = nil
		p, err := a.lockProject(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if err := requireExpectedVersion(p.Version, in.ExpectedVersion); err != nil {
			return err
		}
		images, err := a.deps.Images.ListByProjectID(dbc, p.ID)
		if err != nil {
			return err
		}
		n, err := a.deps.Images.DeleteByProjectID(dbc, p.ID)
		if err != nil {
			return err
		}
		if _, err := a.deps.Projects.Delete(dbc, p.ID); err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, img := range images {
			if img.URL == "" || seen[img.URL] {
				continue
			}
			seen[img.URL] = true
			others, err := a.deps.Images.CountByURL(dbc, img.URL, uuid.Nil)
			if err != nil {
				return err
			}
			if others == 0 {
				refs = append(refs, img.URL)
			}
		}
		out = domainagg.DeleteProjectResult{ProjectID: p.ID, ImagesDeleted: int(n)}
		return nil
	})
	if err != nil {
		return domainagg.DeleteProjectResult{}, err
	}
	out.BlobsDeleted, out.BlobsFailed = a.deleteBlobs(ctx, op, refs)
	a.log.Info("Project deleted",
		"project_id", out.ProjectID,
		"images", out.ImagesDeleted,
		"blobs_deleted", out.BlobsDeleted,
		"blobs_failed", out.BlobsFailed,
	)
	return out, nil
}

// storeImages writes each blob and then its record, in input order. Every stored
// ref is pushed onto comp before its record is written.
func (a *projectAggregate) storeImages(dbc dbctx.Context, comp *compensation, projectID uuid.UUID, afterSeq int64, uploads []domainagg.ImageUpload, meta []domainagg.ImageMeta) error {
	for i, up := range uploads {
		if err := dbc.Ctx.Err(); err != nil {
			return err
		}
		sctx, cancel := context.WithTimeout(dbc.Ctx, a.deps.StoreTimeout)
		ref, err := a.deps.Store.Store(sctx, up.Content, up.OriginalName)
		cancel()
		if err != nil {
			return fmt.Errorf("store image %d of %d: %w", i+1, len(uploads), err)
		}
		comp.push(ref)

		row := &portfolio.Image{
			ID:         uuid.New(),
			ProjectID:  projectID,
			Seq:        afterSeq + int64(i) + 1,
			URL:        ref,
			ImageType:  meta[i].ImageType,
			IsFeatured: meta[i].IsFeatured,
		}
		if _, err := a.deps.Images.Create(dbc, []*portfolio.Image{row}); err != nil {
			return err
		}
	}
	return nil
}

func (a *projectAggregate) checkReplacementURL(dbc dbctx.Context, imageID uuid.UUID, ref string) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, a.deps.StoreTimeout)
	defer cancel()
	info, ok, err := a.deps.Store.Stat(ctx, ref)
	switch {
	case errors.Is(err, imagestore.ErrInvalidRef), errors.Is(err, imagestore.ErrOutsideRoot):
		return ValidationError("Image url does not point into the image store")
	case err != nil:
		return err
	case !ok:
		return ValidationError("Image url does not reference a stored image")
	}
	n, err := a.deps.Images.CountByURL(dbc, ref, imageID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ValidationError("Image url is already used by another image")
	}
	if a.deps.Now().Sub(info.ModTime) > a.deps.AdoptWindow {
		return ValidationError("Image url references a discarded image")
	}
	return nil
}

func (a *projectAggregate) lockProject(dbc dbctx.Context, id uuid.UUID) (*portfolio.Project, error) {
	p, err := a.deps.Projects.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NotFoundError(fmt.Sprintf("Project not found with id: %s", id))
	}
	return p, nil
}

func (a *projectAggregate) projectImage(dbc dbctx.Context, projectID, imageID uuid.UUID) (*portfolio.Image, error) {
	img, err := a.deps.Images.GetByID(dbc, imageID)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, NotFoundError(fmt.Sprintf("Image not found with id: %s", imageID))
	}
	if img.ProjectID != projectID {
		return nil, ValidationError(portfolio.MsgImageNotInProject)
	}
	return img, nil
}

// bump advances the project version under compare-and-set and mirrors the change onto p.
func (a *projectAggregate) bump(dbc dbctx.Context, p *portfolio.Project, updates map[string]any) error {
	now := a.deps.Now().UTC()
	merged := map[string]any{"updated_at": now}
	for k, v := range updates {
		merged[k] = v
	}
	next, err := a.deps.Base.CASGuard.BumpVersion(dbc, p.TableName(), p.ID, p.Version, merged)
	if err != nil {
		return err
	}
	p.Version = next
	p.UpdatedAt = now
	return nil
}

func (a *projectAggregate) snapshot(dbc dbctx.Context, p *portfolio.Project) (domainagg.ProjectSnapshot, error) {
	rows, err := a.deps.Images.ListByProjectID(dbc, p.ID)
	if err != nil {
		return domainagg.ProjectSnapshot{}, err
	}
	images := make([]portfolio.Image, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			images = append(images, *r)
		}
	}
	return domainagg.ProjectSnapshot{Project: *p, Images: images}, nil
}

func (a *projectAggregate) lock(ctx context.Context, projectID uuid.UUID) (func(), error) {
	return a.deps.Locker.Lock(ctx, locks.ProjectKey(projectID.String()))
}

func (a *projectAggregate) compensation(op string) *compensation {
	return newCompensation(op, guardedDeleter{a}, a.log, a.deps.Base.Hooks, a.deps.DeleteTimeout)
}

func (a *projectAggregate) deleteBlobs(ctx context.Context, op string, refs []string) (int, int) {
	return deleteBlobs(ctx, op, refs, guardedDeleter{a}, a.log, a.deps.Base.Hooks, a.deps.DeleteTimeout, a.deps.CleanupConcurrency)
}

// guardedDeleter deletes a blob only while holding its blob lock and finding no image
// that references it. Must be called outside the write transaction.
type guardedDeleter struct {
	a *projectAggregate
}

func (g guardedDeleter) Delete(ctx context.Context, ref string) error {
	release, err := g.a.deps.Locker.Lock(ctx, locks.BlobKey(ref))
	if err != nil {
		return err
	}
	defer release()
	n, err := g.a.deps.Images.CountByURL(dbctx.Context{Ctx: ctx}, ref, uuid.Nil)
	if err != nil {
		return err
	}
	if n > 0 {
		return errBlobReferenced
	}
	return g.a.deps.Store.Delete(ctx, ref)
}

func (a *projectAggregate) reject(op string, start time.Time, err error) error {
	return finishWrite(a.deps.Base, op, start, err)
}

func (a *projectAggregate) configured(op string) error {
	if a.deps.Projects == nil || a.deps.Images == nil || a.deps.Store == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "project aggregate repos or store not configured", nil)
	}
	return nil
}

func validateUploads(uploads []domainagg.ImageUpload, meta []domainagg.ImageMeta) error {
	switch {
	case len(uploads) == 0:
		return ValidationError(portfolio.MsgNoImages)
	case len(meta) == 0:
		return ValidationError(portfolio.MsgNoMetadata)
	case len(uploads) != len(meta):
		return ValidationError(portfolio.MsgCountMismatch)
	}
	for i := range uploads {
		if uploads[i].Content == nil {
			return ValidationError(fmt.Sprintf("Image %d has no content", i+1))
		}
		if !meta[i].ImageType.Valid() {
			return ValidationError(fmt.Sprintf("Image %d has an unknown image type: %q", i+1, meta[i].ImageType))
		}
	}
	return nil
}

func metaTypes(meta []domainagg.ImageMeta) []portfolio.ImageType {
	out := make([]portfolio.ImageType, 0, len(meta))
	for _, m := range meta {
		out = append(out, m.ImageType)
	}
	return out
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domainagg.CodeOf(err)))
		span.SetAttributes(attribute.String("aggregate.error_code", string(domainagg.CodeOf(err))))
	}
	span.End()
}
