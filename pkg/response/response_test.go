package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestWithWarningsAddsMeta(t *testing.T) {
	c, w := newContext()

	WithWarnings(c, http.StatusOK, gin.H{"id": "req-1"}, []Warning{{Code: "EARNINGS_BOOKKEEPING_FAILED", Message: "ledger down"}})

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Meta struct {
			Warnings []Warning `json:"warnings"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Meta.Warnings, 1)
	assert.Equal(t, "ledger down", env.Meta.Warnings[0].Message)
}

func TestWithWarningsOmitsEmptyMeta(t *testing.T) {
	c, w := newContext()

	WithWarnings(c, http.StatusOK, gin.H{"id": "req-1"}, nil)

	assert.NotContains(t, w.Body.String(), "meta")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorRecordsInternalCause(t *testing.T) {
	c, w := newContext()

	Error(c, errors.New("connection reset"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, c.Errors, 1)
	assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestErrorKeepsClientErrorsOffContext(t *testing.T) {
	c, w := newContext()

	Error(c, appErrors.Field("preferred_date", "pickups are not available on Sundays"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, c.Errors)
	assert.Contains(t, w.Body.String(), `"field":"preferred_date"`)
}
