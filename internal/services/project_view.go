package services

import (
	"github.com/google/uuid"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
)

// ImageView is the wire shape of one image.
type ImageView struct {
	ID         uuid.UUID           `json:"id"`
	URL        string              `json:"url"`
	ImageType  portfolio.ImageType `json:"imageType"`
	IsFeatured bool                `json:"isFeatured"`
}

// ProjectView is the wire shape of a project with its images in insertion order.
type ProjectView struct {
	ID            uuid.UUID              `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	ExecutionDate string                 `json:"executionDate"`
	CreationDate  string                 `json:"creationDate"`
	WorkType      portfolio.WorkType     `json:"workType"`
	CustomerType  portfolio.CustomerType `json:"customerType"`
	Version       int                    `json:"version"`
	Images        []ImageView            `json:"images"`
}

func NewProjectView(p portfolio.Project, images []portfolio.Image) ProjectView {
	out := ProjectView{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		ExecutionDate: portfolio.FormatDate(p.ExecutionDate),
		CreationDate:  portfolio.FormatDate(p.CreationDate),
		WorkType:      p.WorkType,
		CustomerType:  p.CustomerType,
		Version:       p.Version,
		Images:        make([]ImageView, 0, len(images)),
	}
	for _, img := range images {
		out.Images = append(out.Images, ImageView{
			ID:         img.ID,
			URL:        img.URL,
			ImageType:  img.ImageType,
			IsFeatured: img.IsFeatured,
		})
	}
	return out
}

func ViewOfSnapshot(snap domainagg.ProjectSnapshot) ProjectView {
	return NewProjectView(snap.Project, snap.Images)
}
