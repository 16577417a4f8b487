package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/portfolio-backend/internal/data/aggregates"
	repos "github.com/yungbote/portfolio-backend/internal/data/repos/portfolio"
	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

// ListProjectsParams carries the raw query filters. Empty strings match everything.
type ListProjectsParams struct {
	WorkType     string
	CustomerType string
	// "asc" sorts by creation date ascending; anything else sorts descending.
	Sort string
}

type ProjectService interface {
	GetProject(ctx context.Context, id uuid.UUID) (*ProjectView, error)
	ListProjects(ctx context.Context, params ListProjectsParams) ([]ProjectView, error)

	CreateProject(ctx context.Context, in domainagg.CreateProjectInput) (*ProjectView, error)
	AddImages(ctx context.Context, in domainagg.AddImagesInput) (*ProjectView, error)
	UpdateImageMetadata(ctx context.Context, in domainagg.UpdateImageMetadataInput) (*ProjectView, error)
	RemoveImage(ctx context.Context, in domainagg.RemoveImageInput) (*ProjectView, error)
	UpdateProject(ctx context.Context, in domainagg.UpdateProjectInput) (*ProjectView, error)
	DeleteProject(ctx context.Context, in domainagg.DeleteProjectInput) (domainagg.DeleteProjectResult, error)
}

type projectService struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	images   repos.ImageRepo
	agg      domainagg.ProjectAggregate
}

func NewProjectService(
	baseLog *logger.Logger,
	projects repos.ProjectRepo,
	images repos.ImageRepo,
	agg domainagg.ProjectAggregate,
) ProjectService {
	return &projectService{
		log:      baseLog.With("service", "ProjectService"),
		projects: projects,
		images:   images,
		agg:      agg,
	}
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*ProjectView, error) {
	const op = "Portfolio.Project.Get"
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.projects.GetByID(dbc, id)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if p == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("Project not found with id: %s", id), nil)
	}
	rows, err := s.images.ListByProjectID(dbc, p.ID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	view := NewProjectView(*p, deref(rows))
	return &view, nil
}

func (s *projectService) ListProjects(ctx context.Context, params ListProjectsParams) ([]ProjectView, error) {
	const op = "Portfolio.Project.List"
	filter, err := parseProjectFilter(op, params)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	projects, err := s.projects.List(dbc, filter)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	rows, err := s.images.ListByProjectIDs(dbc, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	byProject := map[uuid.UUID][]portfolio.Image{}
	for _, img := range rows {
		if img != nil {
			byProject[img.ProjectID] = append(byProject[img.ProjectID], *img)
		}
	}
	out := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, NewProjectView(*p, byProject[p.ID]))
	}
	s.log.Debug("Projects listed",
		"work_type", filter.WorkType,
		"customer_type", filter.CustomerType,
		"ascending", filter.Ascending,
		"count", len(out),
	)
	return out, nil
}

func (s *projectService) CreateProject(ctx context.Context, in domainagg.CreateProjectInput) (*ProjectView, error) {
	return viewOf(s.agg.CreateProject(ctx, in))
}

func (s *projectService) AddImages(ctx context.Context, in domainagg.AddImagesInput) (*ProjectView, error) {
	return viewOf(s.agg.AddImages(ctx, in))
}

func (s *projectService) UpdateImageMetadata(ctx context.Context, in domainagg.UpdateImageMetadataInput) (*ProjectView, error) {
	return viewOf(s.agg.UpdateImageMetadata(ctx, in))
}

func (s *projectService) RemoveImage(ctx context.Context, in domainagg.RemoveImageInput) (*ProjectView, error) {
	return viewOf(s.agg.RemoveImage(ctx, in))
}

func (s *projectService) UpdateProject(ctx context.Context, in domainagg.UpdateProjectInput) (*ProjectView, error) {
	return viewOf(s.agg.UpdateProject(ctx, in))
}

func (s *projectService) DeleteProject(ctx context.Context, in domainagg.DeleteProjectInput) (domainagg.DeleteProjectResult, error) {
	return s.agg.DeleteProject(ctx, in)
}

func parseProjectFilter(op string, params ListProjectsParams) (repos.ProjectFilter, error) {
	var filter repos.ProjectFilter
	if raw := strings.TrimSpace(params.WorkType); raw != "" {
		wt, ok := portfolio.ParseWorkType(raw)
		if !ok {
			return filter, domainagg.NewError(domainagg.CodeValidation, op, "Unknown work type: "+raw, nil)
		}
		filter.WorkType = wt
	}
	if raw := strings.TrimSpace(params.CustomerType); raw != "" {
		ct, ok := portfolio.ParseCustomerType(raw)
		if !ok {
			return filter, domainagg.NewError(domainagg.CodeValidation, op, "Unknown customer type: "+raw, nil)
		}
		filter.CustomerType = ct
	}
	filter.Ascending = strings.EqualFold(strings.TrimSpace(params.Sort), "asc")
	return filter, nil
}

func viewOf(snap domainagg.ProjectSnapshot, err error) (*ProjectView, error) {
	if err != nil {
		return nil, err
	}
	view := ViewOfSnapshot(snap)
	return &view, nil
}

func deref(rows []*portfolio.Image) []portfolio.Image {
	out := make([]portfolio.Image, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
