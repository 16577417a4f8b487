package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		code domainagg.ErrorCode
		want int
	}{
		{domainagg.CodeValidation, http.StatusBadRequest},
		{domainagg.CodeInvariantViolation, http.StatusBadRequest},
		{domainagg.CodePreconditionFailed, http.StatusBadRequest},
		{domainagg.CodeNotFound, http.StatusNotFound},
		{domainagg.CodeConflict, http.StatusConflict},
		{domainagg.CodeRetryable, http.StatusServiceUnavailable},
		{domainagg.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, code := statusForError(domainagg.NewError(tc.code, "op", "msg", nil))
		assert.Equal(t, tc.want, status, tc.code)
		assert.Equal(t, string(tc.code), code)
	}

	status, code := statusForError(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)
}

func TestPublicErrorKeepsFieldErrors(t *testing.T) {
	fe := portfolio.FieldErrors{"title": "The project requires a title"}
	err := domainagg.Wrap(domainagg.CodeValidation, "Portfolio.Project.Create", fe)

	pub := publicError(err)
	assert.Equal(t, fe.Error(), pub.Error())
	var got portfolio.FieldErrors
	require.True(t, errors.As(pub, &got))
	assert.Equal(t, "The project requires a title", got["title"])
}

func TestExpectedVersionParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ProjectHandler{log: logger.Nop()}

	cases := []struct {
		header string
		want   *int
		ok     bool
	}{
		{"", nil, true},
		{"*", nil, true},
		{`"3"`, intPtr(3), true},
		{`W/"4"`, intPtr(4), true},
		{"5", intPtr(5), true},
		{"abc", nil, false},
		{"0", nil, false},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodPut, "/api/projects/x", nil)
		if tc.header != "" {
			c.Request.Header.Set("If-Match", tc.header)
		}
		got, ok := h.expectedVersion(c)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.want, got, tc.header)
		if !ok {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	}
}

func intPtr(v int) *int { return &v }
