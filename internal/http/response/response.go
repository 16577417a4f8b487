package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/ctxutil"
)

const internalErrorMessage = "An unexpected error occurred. Contact support if the problem persists"

type APIError struct {
	Message          string            `json:"message"`
	Code             string            `json:"code,omitempty"`
	Status           int               `json:"status"`
	Path             string            `json:"path"`
	TrackingID       string            `json:"trackingId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. Server-side failures get a generic message;
// the cause is expected to be logged by the caller.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		msg = internalErrorMessage
	}
	apiErr := APIError{
		Message:    msg,
		Code:       code,
		Status:     status,
		Path:       c.Request.URL.Path,
		TrackingID: ctxutil.RequestID(c.Request.Context()),
		Timestamp:  time.Now().UTC(),
	}
	var fe portfolio.FieldErrors
	if errors.As(err, &fe) && len(fe) > 0 {
		apiErr.ValidationErrors = fe
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: apiErr})
}

// RespondMessage is RespondError for errors built from a plain message.
func RespondMessage(c *gin.Context, status int, code, message string) {
	RespondError(c, status, code, errors.New(message))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
