package http_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestRequestLogger_NivelSegunStatusYUsuario(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	app := fiber.New()
	api := app.Group("/api", apphttp.RequestLogger(log), apphttp.AuthMiddleware(testJWTSecret))
	api.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	api.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusInternalServerError, "boom") })

	req := httptest.NewRequest(http.MethodGet, "/api/ok", nil)
	req.Header.Set("Authorization", bearer(t))
	_, err := app.Test(req)
	require.NoError(t, err)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/ok", nil))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/boom", nil)
	req.Header.Set("Authorization", bearer(t))
	_, err = app.Test(req)
	require.NoError(t, err)

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "/api/ok", lines[0]["path"])
	assert.Equal(t, float64(200), lines[0]["status"])
	assert.Equal(t, testUserID, lines[0]["user_id"])

	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, float64(401), lines[1]["status"])
	assert.NotContains(t, lines[1], "user_id")

	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, float64(500), lines[2]["status"])
}
