package portfolio

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

type ImageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Image) ([]*types.Image, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Image, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Image, error)
	ListByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) ([]*types.Image, error)
	GetMaxSeq(dbc dbctx.Context, projectID uuid.UUID) (int64, error)

	// CountByURL counts images referencing url, ignoring excludeID.
	CountByURL(dbc dbctx.Context, url string, excludeID uuid.UUID) (int64, error)
	ListReferencedURLs(dbc dbctx.Context) ([]string, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error

	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)
	DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
}

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	return &imageRepo{db: db, log: baseLog.With("repo", "ImageRepo")}
}

func (r *imageRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *imageRepo) Create(dbc dbctx.Context, rows []*types.Image) ([]*types.Image, error) {
	if len(rows) == 0 {
		return []*types.Image{}, nil
	}
	for _, row := range rows {
		if row != nil && row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := r.tx(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *imageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Image, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Image
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *imageRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Image, error) {
	var out []*types.Image
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).Where("project_id = ?", projectID).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imageRepo) ListByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) ([]*types.Image, error) {
	var out []*types.Image
	if len(projectIDs) == 0 {
		return out, nil
	}
	err := r.tx(dbc).
		Where("project_id IN ?", projectIDs).
		Order("project_id ASC").
		Order("seq ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imageRepo) GetMaxSeq(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	if projectID == uuid.Nil {
		return 0, nil
	}
	var maxSeq int64
	err := r.tx(dbc).
		Model(&types.Image{}).
		Select("COALESCE(MAX(seq), 0)").
		Where("project_id = ?", projectID).
		Scan(&maxSeq).Error
	if err != nil {
		return 0, err
	}
	return maxSeq, nil
}

func (r *imageRepo) CountByURL(dbc dbctx.Context, url string, excludeID uuid.UUID) (int64, error) {
	q := r.tx(dbc).Model(&types.Image{}).Where("url = ?", url)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *imageRepo) ListReferencedURLs(dbc dbctx.Context) ([]string, error) {
	var out []string
	if err := r.tx(dbc).Model(&types.Image{}).Distinct().Pluck("url", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.tx(dbc).
		Model(&types.Image{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *imageRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, nil
	}
	res := r.tx(dbc).Where("id = ?", id).Delete(&types.Image{})
	return res.RowsAffected, res.Error
}

func (r *imageRepo) DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	if projectID == uuid.Nil {
		return 0, nil
	}
	res := r.tx(dbc).Where("project_id = ?", projectID).Delete(&types.Image{})
	return res.RowsAffected, res.Error
}
