package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

// Manifest is the YAML document consumed by the importer.
//
//	projects:
//	  - title: Terrace
//	    description: Full clean
//	    workType: WOODEN_DECK_CLEANING
//	    customerType: PRIVATE_CUSTOMER
//	    executionDate: 2024-05-01
//	    images:
//	      - file: terrace/before.jpg
//	        imageType: BEFORE
//	      - file: terrace/after.jpg
//	        imageType: AFTER
//	        featured: true
type Manifest struct {
	Projects []ManifestProject `yaml:"projects"`
}

type ManifestProject struct {
	Title         string          `yaml:"title"`
	Description   string          `yaml:"description"`
	WorkType      string          `yaml:"workType"`
	CustomerType  string          `yaml:"customerType"`
	ExecutionDate string          `yaml:"executionDate"`
	Images        []ManifestImage `yaml:"images"`
}

type ManifestImage struct {
	File      string `yaml:"file"`
	ImageType string `yaml:"imageType"`
	Featured  bool   `yaml:"featured"`
}

func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return &m, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

type ImportFailure struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created []uuid.UUID     `json:"created"`
	Failed  []ImportFailure `json:"failed"`
}

// Importer seeds projects from a manifest. Each project goes through CreateProject,
// so a project missing a BEFORE or AFTER image is rejected like any API call.
type Importer interface {
	Import(ctx context.Context, fsys fs.FS, manifestName string) (ImportResult, error)
}

type importer struct {
	log      *logger.Logger
	projects ProjectService
	// Abort at the first failed project instead of collecting failures.
	stopOnError bool
}

func NewImporter(baseLog *logger.Logger, projects ProjectService, stopOnError bool) Importer {
	return &importer{
		log:         baseLog.With("service", "Importer"),
		projects:    projects,
		stopOnError: stopOnError,
	}
}

func (im *importer) Import(ctx context.Context, fsys fs.FS, manifestName string) (ImportResult, error) {
	var res ImportResult
	raw, err := fs.ReadFile(fsys, manifestName)
	if err != nil {
		return res, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(bytes.NewReader(raw))
	if err != nil {
		return res, err
	}
	base := path.Dir(manifestName)

	for i, mp := range m.Projects {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id, err := im.importOne(ctx, fsys, base, mp)
		if err != nil {
			im.log.Warn("Project import failed", "index", i, "title", mp.Title, "error", err)
			res.Failed = append(res.Failed, ImportFailure{Index: i, Title: mp.Title, Error: domainagg.MessageOf(err)})
			if im.stopOnError {
				return res, fmt.Errorf("import project %d (%q): %w", i, mp.Title, err)
			}
			continue
		}
		res.Created = append(res.Created, id)
	}
	im.log.Info("Import finished", "manifest", manifestName, "created", len(res.Created), "failed", len(res.Failed))
	return res, nil
}

func (im *importer) importOne(ctx context.Context, fsys fs.FS, base string, mp ManifestProject) (uuid.UUID, error) {
	fields, err := mp.fields()
	if err != nil {
		return uuid.Nil, err
	}
	in := domainagg.CreateProjectInput{Fields: fields}
	for _, mi := range mp.Images {
		// Unknown types pass through so the aggregate reports them with its own message.
		it, _ := portfolio.ParseImageType(mi.ImageType)
		data, err := fs.ReadFile(fsys, path.Join(base, mi.File))
		if err != nil {
			return uuid.Nil, fmt.Errorf("read image %s: %w", mi.File, err)
		}
		in.Images = append(in.Images, domainagg.ImageUpload{OriginalName: path.Base(mi.File), Content: bytes.NewReader(data)})
		in.Metadata = append(in.Metadata, domainagg.ImageMeta{ImageType: it, IsFeatured: mi.Featured})
	}
	view, err := im.projects.CreateProject(ctx, in)
	if err != nil {
		return uuid.Nil, err
	}
	return view.ID, nil
}

func (mp ManifestProject) fields() (portfolio.ProjectFields, error) {
	wt, _ := portfolio.ParseWorkType(mp.WorkType)
	ct, _ := portfolio.ParseCustomerType(mp.CustomerType)
	f := portfolio.ProjectFields{
		Title:        mp.Title,
		Description:  mp.Description,
		WorkType:     wt,
		CustomerType: ct,
	}
	if raw := strings.TrimSpace(mp.ExecutionDate); raw != "" {
		d, err := portfolio.ParseDate(raw)
		if err != nil {
			return f, fmt.Errorf("executionDate %q: %w", raw, err)
		}
		f.ExecutionDate = d
	}
	return f, nil
}
