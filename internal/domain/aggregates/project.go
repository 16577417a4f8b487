package aggregates

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
)

var ProjectAggregateContract = Contract{
	Name:                 "Portfolio.ProjectAggregate",
	WriteTxOwnership:     WriteTxOwnedByAggregate,
	ReadPolicy:           ReadPolicyInvariantScoped,
	CompensatedResources: []string{"image_store"},
	Notes:                "Owns a project and its images; every committed state has at least one BEFORE and one AFTER image.",
}

// ProjectAggregate owns the Project/Image consistency boundary.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation, CodeRetryable, CodeInternal.
// Blobs written to the image store during a failed call are deleted before the call returns.
type ProjectAggregate interface {
	Aggregate

	// CreateProject persists a project together with an initial BEFORE/AFTER image set.
	CreateProject(ctx context.Context, in CreateProjectInput) (ProjectSnapshot, error)

	// AddImages appends images to an existing project.
	AddImages(ctx context.Context, in AddImagesInput) (ProjectSnapshot, error)

	// UpdateImageMetadata patches one image; a type change is checked against the BEFORE/AFTER rule.
	UpdateImageMetadata(ctx context.Context, in UpdateImageMetadataInput) (ProjectSnapshot, error)

	// RemoveImage deletes one image unless it is the last of its type.
	RemoveImage(ctx context.Context, in RemoveImageInput) (ProjectSnapshot, error)

	// UpdateProject patches the project's own fields.
	UpdateProject(ctx context.Context, in UpdateProjectInput) (ProjectSnapshot, error)

	// DeleteProject removes the project, all its image records, then their blobs.
	DeleteProject(ctx context.Context, in DeleteProjectInput) (DeleteProjectResult, error)
}

// ImageUpload is one blob to store. Content is read once.
type ImageUpload struct {
	OriginalName string
	Content      io.Reader
}

// ImageMeta is the per-upload metadata paired by index with ImageUpload.
type ImageMeta struct {
	ImageType  portfolio.ImageType
	IsFeatured bool
}

type CreateProjectInput struct {
	Fields   portfolio.ProjectFields
	Images   []ImageUpload
	Metadata []ImageMeta
	// Zero means now.
	CreatedAt time.Time
}

type AddImagesInput struct {
	ProjectID uuid.UUID
	Images    []ImageUpload
	Metadata  []ImageMeta
	// When set, the write fails with CodeConflict unless the project is at this version.
	ExpectedVersion *int
}

// ImagePatch holds optional image updates; nil means unchanged.
type ImagePatch struct {
	ImageType  *portfolio.ImageType
	IsFeatured *bool
	URL        *string
}

func (p ImagePatch) Empty() bool {
	return p.ImageType == nil && p.IsFeatured == nil && p.URL == nil
}

type UpdateImageMetadataInput struct {
	ProjectID       uuid.UUID
	ImageID         uuid.UUID
	Patch           ImagePatch
	ExpectedVersion *int
}

type RemoveImageInput struct {
	ProjectID       uuid.UUID
	ImageID         uuid.UUID
	ExpectedVersion *int
}

type UpdateProjectInput struct {
	ProjectID       uuid.UUID
	Patch           portfolio.ProjectPatch
	ExpectedVersion *int
}

type DeleteProjectInput struct {
	ProjectID       uuid.UUID
	ExpectedVersion *int
}

// ProjectSnapshot is a committed copy of the aggregate. Mutating it has no effect on storage.
type ProjectSnapshot struct {
	Project portfolio.Project
	Images  []portfolio.Image
}

type DeleteProjectResult struct {
	ProjectID     uuid.UUID
	ImagesDeleted int
	BlobsDeleted  int
	BlobsFailed   int
}
