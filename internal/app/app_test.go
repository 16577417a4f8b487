package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/portfolio-backend/internal/domain/user"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		HTTPAddr:         "127.0.0.1:0",
		LogMode:          "test",
		ShutdownGrace:    time.Second,
		DBDriver:         DriverSQLite,
		SQLitePath:       filepath.Join(dir, "portfolio.db"),
		UploadDir:        filepath.Join(dir, "uploads"),
		UploadURLPrefix:  "/uploads",
		UploadMaxBytes:   1 << 20,
		StoreTimeout:     5 * time.Second,
		DeleteTimeout:    5 * time.Second,
		SweepGrace:       time.Hour,
		SweepConcurrency: 2,
		BcryptCost:       4,
	}
}

func TestNewWithConfigWiresSQLite(t *testing.T) {
	a, err := NewWithConfig(context.Background(), logger.Nop(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Redis)
	require.NotNil(t, a.Server)

	for _, path := range []string{"/healthcheck", "/readyz"} {
		rec := httptest.NewRecorder()
		a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	view, err := a.Services.Users.CreateUser(context.Background(), user.UserFields{
		Username: "mette", Email: "mette@example.com", Password: "correct horse", Role: "admin",
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/"+view.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImportThroughWiredServices(t *testing.T) {
	a, err := NewWithConfig(context.Background(), logger.Nop(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	fsys := fstest.MapFS{
		"portfolio.yaml": {Data: []byte(`projects:
  - title: Roof
    description: Moss removal
    workType: ROOF_CLEANING
    customerType: PRIVATE_CUSTOMER
    executionDate: "2024-03-01"
    images:
      - {file: before.jpg, imageType: BEFORE}
      - {file: after.jpg, imageType: AFTER, featured: true}
`)},
		"before.jpg": {Data: []byte("before")},
		"after.jpg":  {Data: []byte("after")},
	}
	res, err := a.Services.Importer.Import(context.Background(), fsys, "portfolio.yaml")
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Empty(t, res.Failed)

	view, err := a.Services.Projects.GetProject(context.Background(), res.Created[0])
	require.NoError(t, err)
	require.Len(t, view.Images, 2)

	sweep, err := a.Services.Sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sweep.Scanned)
	assert.Equal(t, 2, sweep.Referenced)
	assert.Zero(t, sweep.Deleted)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, view.Images[0].URL, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewWithConfigRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "oracle"
	a, err := NewWithConfig(context.Background(), logger.Nop(), cfg)
	assert.Error(t, err)
	assert.Nil(t, a)
}
