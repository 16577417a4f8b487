package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageContentTypeOnStaticUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roof.heic"), []byte("heic bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.bin"), []byte("raw"), 0o644))

	r := gin.New()
	r.Group("/uploads", ImageContentType()).Static("/", dir)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/roof.heic", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/heic", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "heic bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/notes.bin", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "image/heic", rec.Header().Get("Content-Type"))
}
