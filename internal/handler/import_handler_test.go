package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"results-web/internal/config"
)

// The web server keeps running when Redis is down; the queue-backed
// routes must refuse cleanly instead of dereferencing a nil client.
func TestQueueRoutesUnavailableWithoutClients(t *testing.T) {
	app := fiber.New()

	imports := NewImportHandler(nil, nil, nil, nil, nil, &config.Config{})
	analytics := NewAnalyticsHandler(nil, nil)
	app.Post("/imports/:kind/commit", imports.Commit)
	app.Get("/imports/jobs/:id", imports.JobStatus)
	app.Get("/imports/jobs/:id/errors", imports.ErrorReport)
	app.Post("/analytics/recompute", analytics.Recompute)

	cases := []struct {
		method string
		path   string
	}{
		{fiber.MethodPost, "/imports/students/commit"},
		{fiber.MethodGet, "/imports/jobs/UPLOAD-1a2b3c4d"},
		{fiber.MethodGet, "/imports/jobs/UPLOAD-1a2b3c4d/errors"},
		{fiber.MethodPost, "/analytics/recompute"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}
