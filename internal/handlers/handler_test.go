package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tunebox/internal/capacity"
	"tunebox/internal/config"
	"tunebox/internal/database"
	"tunebox/internal/media"
	"tunebox/internal/metrics"
	"tunebox/internal/middleware"
	"tunebox/internal/models"
	"tunebox/internal/services"
	"tunebox/internal/test"
)

const testSecret = "handlers-test-secret"

type testServer struct {
	app     *fiber.App
	db      *gorm.DB
	auth    *services.AuthService
	staging *media.StagingStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := test.GetTestDB(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	authService := services.NewAuthService(db, testSecret, time.Hour, nil)
	authService.SetBcryptCost(bcrypt.MinCost)

	store, err := media.NewStagingStore(t.TempDir(), nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	h := Handlers{
		Auth:     NewAuthHandler(authService),
		Upload:   NewUploadHandler(services.NewUploadService(db, media.NewValidator(1<<20, 1<<22), m, nil, 2), store, nil),
		Catalog:  NewCatalogHandler(services.NewCatalogService(db, nil)),
		Playlist: NewPlaylistHandler(services.NewPlaylistService(db, nil)),
		Report:   NewReportHandler(services.NewReportService(db)),
		Health:   NewHealthHandler(database.NewDatabaseManagerFromExisting(db, sqlDB), capacity.NewProbe(capacity.DefaultThresholds(), m), store.Dir(), m),
		Metrics:  NewMetricsHandler(reg),
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	RegisterRoutes(app, h, middleware.NewAuthMiddleware(authService, testSecret), config.RateLimitConfig{
		GeneralLimit:  1000,
		GeneralWindow: time.Minute,
		AuthLimit:     1000,
		AuthWindow:    time.Minute,
		UploadLimit:   1000,
		UploadWindow:  time.Minute,
	})

	return &testServer{app: app, db: db, auth: authService, staging: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := s.auth.IssueToken(user)
	require.NoError(t, err)
	return token
}

// assertStagingEmpty checks that no upload left a file behind
func (s *testServer) assertStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.staging.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func jsonRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type filePart struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files []filePart, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	decodeBody(t, resp, &body)
	return body
}
