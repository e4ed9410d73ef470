package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/middleware"
	"github.com/ecocycle/ewaste-api/internal/models"
)

var (
	adminClaims     = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	publicClaims    = &models.JWTClaims{UserID: "user-1", Role: models.RolePublic}
	collectorClaims = &models.JWTClaims{UserID: "col-1", Role: models.RoleCollector}
	centerClaims    = &models.JWTClaims{UserID: "center-1", Role: models.RoleRecyclingCenter}
)

type responseEnvelope struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
	Error      *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, claims *models.JWTClaims) {
	c.Set(middleware.ContextUserKey, claims)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
