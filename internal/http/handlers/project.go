package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/http/response"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
	"github.com/yungbote/portfolio-backend/internal/services"
)

const (
	defaultMaxUploadBytes = 32 << 20
	maxJSONPartBytes      = 1 << 20
)

type ProjectHandler struct {
	log            *logger.Logger
	projects       services.ProjectService
	maxUploadBytes int64
}

func NewProjectHandler(log *logger.Logger, projects services.ProjectService, maxUploadBytes int64) *ProjectHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ProjectHandler{
		log:            log.With("handler", "ProjectHandler"),
		projects:       projects,
		maxUploadBytes: maxUploadBytes,
	}
}

type projectFieldsRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	WorkType      *string `json:"workType"`
	CustomerType  *string `json:"customerType"`
	ExecutionDate *string `json:"executionDate"`
}

type imageMetadataRequest struct {
	ImageType  string `json:"imageType"`
	IsFeatured bool   `json:"isFeatured"`
}

type imagePatchRequest struct {
	ImageType  *string `json:"imageType"`
	IsFeatured *bool   `json:"isFeatured"`
	URL        *string `json:"url"`
}

// GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := h.pathID(c, "id", "project")
	if !ok {
		return
	}
	view, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusOK, view)
}

// GET /api/projects?workType=&customerType=&sort=asc|desc
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	views, err := h.projects.ListProjects(c.Request.Context(), services.ListProjectsParams{
		WorkType:     c.Query("workType"),
		CustomerType: c.Query("customerType"),
		Sort:         c.Query("sort"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, views)
}

// POST /api/projects
// multipart: data (project JSON), images (files), imageMetadata (JSON array)
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	form, ok := h.parseMultipart(c)
	if !ok {
		return
	}
	raw, found, err := formPart(form, "data")
	if err != nil || !found {
		response.RespondMessage(c, http.StatusBadRequest, "missing_project_data", "Project data must be provided")
		return
	}
	var req projectFieldsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_project_data", "Project data is not valid JSON")
		return
	}
	fields, err := req.fields()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	uploads, meta, closeAll, ok := h.readImages(c, form)
	if !ok {
		return
	}
	defer closeAll()

	view, err := h.projects.CreateProject(c.Request.Context(), domainagg.CreateProjectInput{
		Fields:   fields,
		Images:   uploads,
		Metadata: meta,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("Project created", "project_id", view.ID, "images", len(view.Images))
	h.respondProject(c, http.StatusCreated, view)
}

// PATCH /api/projects/:id/images
// multipart: images (files), imageMetadata (JSON array)
func (h *ProjectHandler) AddImages(c *gin.Context) {
	id, ok := h.pathID(c, "id", "project")
	if !ok {
		return
	}
	expected, ok := h.expectedVersion(c)
	if !ok {
		return
	}
	form, ok := h.parseMultipart(c)
	if !ok {
		return
	}
	uploads, meta, closeAll, ok := h.readImages(c, form)
	if !ok {
		return
	}
	defer closeAll()

	view, err := h.projects.AddImages(c.Request.Context(), domainagg.AddImagesInput{
		ProjectID:       id,
		Images:          uploads,
		Metadata:        meta,
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusOK, view)
}

// PATCH /api/projects/:id/images/:imageId
func (h *ProjectHandler) UpdateImageMetadata(c *gin.Context) {
	projectID, ok := h.pathID(c, "id", "project")
	if !ok {
		return
	}
	imageID, ok := h.pathID(c, "imageId", "image")
	if !ok {
		return
	}
	expected, ok := h.expectedVersion(c)
	if !ok {
		return
	}
	var req imagePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return
	}
	patch := domainagg.ImagePatch{IsFeatured: req.IsFeatured, URL: req.URL}
	if req.ImageType != nil {
		it := imageTypeOf(*req.ImageType)
		patch.ImageType = &it
	}

	view, err := h.projects.UpdateImageMetadata(c.Request.Context(), domainagg.UpdateImageMetadataInput{
		ProjectID:       projectID,
		ImageID:         imageID,
		Patch:           patch,
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusOK, view)
}

// PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := h.pathID(c, "id", "project")
	if !ok {
		return
	}
	expected, ok := h.expectedVersion(c)
	if !ok {
		return
	}
	var req projectFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return
	}
	patch, err := req.patch()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}

	view, err := h.projects.UpdateProject(c.Request.Context(), domainagg.UpdateProjectInput{
		ProjectID:       id,
		Patch:           patch,
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusOK, view)
}

// DELETE /api/projects/:id/images/:imageId
func (h *ProjectHandler) RemoveImage(c *gin.Context) {
	projectID, ok := h.pathID(c, "id", "project")
	if !ok {
		return
	}
	imageID, ok := h.pathID(c, "imageId", "image")
	if !ok {
		return
	}
	expected, ok := h.expectedVersion(c)
	if !ok {
		return
	}
	view, err := h.projects.RemoveImage(c.Request.Context(), domainagg.RemoveImageInput{
		ProjectID:       projectID,
		ImageID:         imageID,
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusOK, view)
}

// DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := h.pathID(c, "id", "project")
	if !ok {
		return
	}
	expected, ok := h.expectedVersion(c)
	if !ok {
		return
	}
	res, err := h.projects.DeleteProject(c.Request.Context(), domainagg.DeleteProjectInput{
		ProjectID:       id,
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.BlobsFailed > 0 {
		h.log.Warn("Project deleted with leftover blobs", "project_id", id, "blobs_failed", res.BlobsFailed)
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) respondProject(c *gin.Context, status int, view *services.ProjectView) {
	c.Header("ETag", strconv.Quote(strconv.Itoa(view.Version)))
	c.JSON(status, view)
}

func (h *ProjectHandler) fail(c *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error("Project request failed", "path", c.Request.URL.Path, "code", code, "error", err)
	}
	response.RespondError(c, status, code, publicError(err))
}

func (h *ProjectHandler) pathID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(param)))
	if err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_"+what+"_id", fmt.Sprintf("Invalid %s id: %s", what, c.Param(param)))
		return uuid.Nil, false
	}
	return id, true
}

// expectedVersion reads an optional If-Match header holding the project version.
func (h *ProjectHandler) expectedVersion(c *gin.Context) (*int, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_if_match", "If-Match must hold a project version")
		return nil, false
	}
	return &v, true
}

func (h *ProjectHandler) parseMultipart(c *gin.Context) (*multipart.Form, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondMessage(c, http.StatusRequestEntityTooLarge, "upload_too_large", "Upload exceeds the size limit")
			return nil, false
		}
		response.RespondMessage(c, http.StatusBadRequest, "invalid_multipart_form", "Request must be multipart/form-data")
		return nil, false
	}
	return c.Request.MultipartForm, true
}

// readImages opens every uploaded file. The caller must run closeAll once done.
func (h *ProjectHandler) readImages(c *gin.Context, form *multipart.Form) ([]domainagg.ImageUpload, []domainagg.ImageMeta, func(), bool) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	var meta []domainagg.ImageMeta
	if raw, found, err := formPart(form, "imageMetadata"); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_image_metadata", "Image metadata could not be read")
		return nil, nil, closeAll, false
	} else if found {
		var reqs []imageMetadataRequest
		if err := json.Unmarshal(raw, &reqs); err != nil {
			response.RespondMessage(c, http.StatusBadRequest, "invalid_image_metadata", "Image metadata must be a JSON array")
			return nil, nil, closeAll, false
		}
		for _, r := range reqs {
			meta = append(meta, domainagg.ImageMeta{ImageType: imageTypeOf(r.ImageType), IsFeatured: r.IsFeatured})
		}
	}

	headers := form.File["images"]
	uploads := make([]domainagg.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			h.fail(c, err)
			return nil, nil, func() {}, false
		}
		files = append(files, f)
		uploads = append(uploads, domainagg.ImageUpload{OriginalName: fh.Filename, Content: f})
	}
	return uploads, meta, closeAll, true
}

// formPart returns a multipart part sent either as a plain field or as a file part.
func formPart(form *multipart.Form, name string) ([]byte, bool, error) {
	if vals := form.Value[name]; len(vals) > 0 {
		return []byte(vals[0]), true, nil
	}
	fhs := form.File[name]
	if len(fhs) == 0 {
		return nil, false, nil
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil, true, err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxJSONPartBytes))
	return raw, true, err
}

func (r projectFieldsRequest) fields() (portfolio.ProjectFields, error) {
	var f portfolio.ProjectFields
	if r.Title != nil {
		f.Title = *r.Title
	}
	if r.Description != nil {
		f.Description = *r.Description
	}
	if r.WorkType != nil {
		f.WorkType, _ = portfolio.ParseWorkType(*r.WorkType)
	}
	if r.CustomerType != nil {
		f.CustomerType, _ = portfolio.ParseCustomerType(*r.CustomerType)
	}
	if r.ExecutionDate != nil && strings.TrimSpace(*r.ExecutionDate) != "" {
		d, err := portfolio.ParseDate(strings.TrimSpace(*r.ExecutionDate))
		if err != nil {
			return f, badDate()
		}
		f.ExecutionDate = d
	}
	return f, nil
}

func (r projectFieldsRequest) patch() (portfolio.ProjectPatch, error) {
	p := portfolio.ProjectPatch{Title: r.Title, Description: r.Description}
	if r.WorkType != nil {
		wt, _ := portfolio.ParseWorkType(*r.WorkType)
		p.WorkType = &wt
	}
	if r.CustomerType != nil {
		ct, _ := portfolio.ParseCustomerType(*r.CustomerType)
		p.CustomerType = &ct
	}
	if r.ExecutionDate != nil {
		d, err := portfolio.ParseDate(strings.TrimSpace(*r.ExecutionDate))
		if err != nil {
			return p, badDate()
		}
		p.ExecutionDate = &d
	}
	return p, nil
}

func badDate() error {
	return portfolio.FieldErrors{"executionDate": "Execution date must be formatted as YYYY-MM-DD"}
}

// imageTypeOf normalizes raw when it names a known type and passes it through
// untouched otherwise, so the rejection echoes what the client sent.
func imageTypeOf(raw string) portfolio.ImageType {
	if it, ok := portfolio.ParseImageType(raw); ok {
		return it
	}
	return portfolio.ImageType(raw)
}
