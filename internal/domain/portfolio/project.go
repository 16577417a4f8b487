package portfolio

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const MaxDescriptionLength = 2000

// Project is one completed job. It owns its Images; they are never shared.
type Project struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Title        string       `gorm:"column:title;not null" json:"title"`
	Description  string       `gorm:"column:description;type:varchar(2000);not null" json:"description"`
	WorkType     WorkType     `gorm:"column:work_type;not null;index" json:"work_type"`
	CustomerType CustomerType `gorm:"column:customer_type;not null;index" json:"customer_type"`

	ExecutionDate datatypes.Date `gorm:"column:execution_date;not null" json:"execution_date"`
	// Set once at creation by the system.
	CreationDate datatypes.Date `gorm:"column:creation_date;not null;index" json:"creation_date"`

	// Bumped by every committed mutation of the aggregate.
	Version int `gorm:"column:version;not null" json:"version"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string { return "project" }

// Image is one photo of a Project. URL is the Image Store reference.
type Image struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_image_project_seq,unique,priority:1;index" json:"project_id"`
	// Insertion order within the project.
	Seq int64 `gorm:"column:seq;not null;index:idx_image_project_seq,unique,priority:2" json:"seq"`

	URL        string    `gorm:"column:url;not null;index" json:"url"`
	ImageType  ImageType `gorm:"column:image_type;not null" json:"image_type"`
	IsFeatured bool      `gorm:"column:is_featured;not null" json:"is_featured"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Image) TableName() string { return "image" }

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(d datatypes.Date) string {
	t := time.Time(d)
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (datatypes.Date, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return datatypes.Date{}, err
	}
	return DateOf(t), nil
}
