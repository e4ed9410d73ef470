package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecocycle/ewaste-api/internal/middleware"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
	"github.com/ecocycle/ewaste-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func invalidPayload(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// pageParams reads limit and offset, leaving clamping to the repositories.
func pageParams(c *gin.Context) (int, int, error) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Field(key, key+" must be a non-negative integer")
	}
	return value, nil
}

// csvQuery accepts both ?status=a,b and ?status=a&status=b.
func csvQuery(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Field(key, key+" must use the YYYY-MM-DD format")
	}
	return &parsed, nil
}

func bookkeepingWarnings(b models.Bookkeeping) []response.Warning {
	if !b.Failed() {
		return nil
	}
	return []response.Warning{{Code: "EARNINGS_BOOKKEEPING_FAILED", Message: b.Error}}
}
