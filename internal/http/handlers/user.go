package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/portfolio-backend/internal/domain/user"
	"github.com/yungbote/portfolio-backend/internal/http/response"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
	"github.com/yungbote/portfolio-backend/internal/services"
)

type UserHandler struct {
	log   *logger.Logger
	users services.UserService
}

func NewUserHandler(log *logger.Logger, users services.UserService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), users: users}
}

type userRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (r userRequest) fields() types.UserFields {
	return types.UserFields{
		Username: deref(r.Username),
		Email:    deref(r.Email),
		Password: deref(r.Password),
		Role:     deref(r.Role),
	}
}

// GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	views, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, views)
}

// GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	view, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return
	}
	view, err := h.users.CreateUser(c.Request.Context(), req.fields())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondCreated(c, view)
}

// PUT /api/users/:id
// Absent or blank fields are left unchanged.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return
	}
	view, err := h.users.UpdateUser(c.Request.Context(), id, types.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error("User request failed", "path", c.Request.URL.Path, "code", code, "error", err)
	}
	response.RespondError(c, status, code, publicError(err))
}

func (h *UserHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_user_id", fmt.Sprintf("Invalid user id: %s", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
