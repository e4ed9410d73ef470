package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/internal/service"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
	"github.com/ecocycle/ewaste-api/pkg/response"
)

type earningsService interface {
	Overview(ctx context.Context, query dto.EarningsQuery, actor *models.JWTClaims) (*models.EarningsOverview, error)
}

type statementService interface {
	Generate(ctx context.Context, req dto.StatementRequest, actor *models.JWTClaims) (*dto.StatementResponse, error)
	Resolve(token string) (*service.StatementFile, error)
	Open(file *service.StatementFile) (*os.File, error)
}

// EarningsHandler exposes the collector ledger and statement downloads.
type EarningsHandler struct {
	earnings   earningsService
	statements statementService
}

// NewEarningsHandler constructs the handler.
func NewEarningsHandler(earnings earningsService, statements statementService) *EarningsHandler {
	return &EarningsHandler{earnings: earnings, statements: statements}
}

// Overview godoc
// @Summary Collector earnings
// @Description Ledger rows with pending and paid totals
// @Tags Earnings
// @Produce json
// @Security BearerAuth
// @Param collector_id query string false "Collector (admins only)"
// @Param status query string false "pending or paid"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /earnings [get]
func (h *EarningsHandler) Overview(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.EarningsQuery{
		CollectorID: strings.TrimSpace(c.Query("collector_id")),
		Status:      strings.ToLower(strings.TrimSpace(c.Query("status"))),
		From:        from,
		To:          to,
	}
	overview, err := h.earnings.Overview(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// GenerateStatement godoc
// @Summary Render an earnings statement
// @Description Stores a CSV or PDF statement and returns a signed download URL
// @Tags Earnings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StatementRequest false "Statement options"
// @Success 201 {object} response.Envelope
// @Router /earnings/statements [post]
func (h *EarningsHandler) GenerateStatement(c *gin.Context) {
	var req dto.StatementRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err, "invalid statement payload"))
			return
		}
	}
	res, err := h.statements.Generate(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// DownloadStatement godoc
// @Summary Download a statement
// @Description The signed token is the only credential
// @Tags Earnings
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /earnings/statements/download [get]
func (h *EarningsHandler) DownloadStatement(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Field("token", "token is required"))
		return
	}
	file, err := h.statements.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	handle, err := h.statements.Open(file)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer handle.Close()

	info, err := handle.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), file.ContentType, handle, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Filename),
	})
}
