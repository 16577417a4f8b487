package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
)

// ImageContentType labels stored images by extension before the file server answers.
func ImageContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ct := imagestore.ContentTypeFor(c.Request.URL.Path); ct != "" {
			c.Header("Content-Type", ct)
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
