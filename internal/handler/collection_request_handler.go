package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
	"github.com/ecocycle/ewaste-api/pkg/response"
)

type collectionRequestService interface {
	Submit(ctx context.Context, req dto.SubmitCollectionRequest, actor *models.JWTClaims) (*models.CollectionRequest, error)
	List(ctx context.Context, query dto.CollectionRequestQuery, actor *models.JWTClaims) ([]models.CollectionRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CollectionRequest, error)
}

type assignmentService interface {
	Assign(ctx context.Context, requestID string, req dto.AssignCollectorRequest, actor *models.JWTClaims) (*models.AssignmentResult, error)
}

const (
	defaultMaxPhotos     = 5
	defaultMaxPhotoBytes = 5 << 20
	// formFieldAllowance covers the non-file fields of a multipart submission.
	formFieldAllowance = 1 << 20
)

// CollectionRequestHandler exposes submission, listing and assignment.
type CollectionRequestHandler struct {
	requests      collectionRequestService
	assignments   assignmentService
	maxPhotos     int
	maxPhotoBytes int64
}

// CollectionRequestHandlerOption customises the handler.
type CollectionRequestHandlerOption func(*CollectionRequestHandler)

// WithPhotoLimits caps the photo count and per-file size read from a
// multipart submission.
func WithPhotoLimits(maxFiles int, maxFileBytes int64) CollectionRequestHandlerOption {
	return func(h *CollectionRequestHandler) {
		if maxFiles > 0 {
			h.maxPhotos = maxFiles
		}
		if maxFileBytes > 0 {
			h.maxPhotoBytes = maxFileBytes
		}
	}
}

// NewCollectionRequestHandler constructs the handler.
func NewCollectionRequestHandler(requests collectionRequestService, assignments assignmentService, opts ...CollectionRequestHandlerOption) *CollectionRequestHandler {
	h := &CollectionRequestHandler{
		requests:      requests,
		assignments:   assignments,
		maxPhotos:     defaultMaxPhotos,
		maxPhotoBytes: defaultMaxPhotoBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Submit godoc
// @Summary Submit a pickup request
// @Description Accepts JSON, or multipart/form-data with an items JSON field and photos files
// @Tags Collection Requests
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitCollectionRequest true "Pickup request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /collection-requests [post]
func (h *CollectionRequestHandler) Submit(c *gin.Context) {
	var (
		req dto.SubmitCollectionRequest
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = h.bindMultipartSubmission(c)
	} else if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		err = invalidPayload(bindErr, "invalid collection request payload")
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.requests.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

func (h *CollectionRequestHandler) bindMultipartSubmission(c *gin.Context) (dto.SubmitCollectionRequest, error) {
	limit := int64(h.maxPhotos)*h.maxPhotoBytes + formFieldAllowance
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dto.SubmitCollectionRequest{}, appErrors.Wrap(err, "PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge,
				fmt.Sprintf("submission exceeds %d MB", limit>>20))
		}
		return dto.SubmitCollectionRequest{}, invalidPayload(err, "invalid multipart form")
	}
	req := dto.SubmitCollectionRequest{
		PreferredDate: c.PostForm("preferred_date"),
		TimeSlot:      c.PostForm("time_slot"),
		ContactName:   c.PostForm("contact_name"),
		ContactPhone:  c.PostForm("contact_phone"),
		Address:       c.PostForm("address"),
		Notes:         c.PostForm("notes"),
	}
	if raw := strings.TrimSpace(c.PostForm("items")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Items); err != nil {
			return req, appErrors.Field("items", "items must be a JSON array of {category, quantity}")
		}
	}

	headers := form.File["photos"]
	if len(headers) > h.maxPhotos {
		return req, appErrors.Field("photos", fmt.Sprintf("at most %d photos can be attached", h.maxPhotos))
	}
	for _, header := range headers {
		if header.Size > h.maxPhotoBytes {
			return req, appErrors.Field("photos", fmt.Sprintf("%s exceeds the %d MB limit", header.Filename, h.maxPhotoBytes>>20))
		}
	}
	for _, header := range headers {
		photo, err := readPhoto(header, h.maxPhotoBytes)
		if err != nil {
			return req, appErrors.Field("photos", fmt.Sprintf("could not read %s", header.Filename))
		}
		req.Photos = append(req.Photos, photo)
	}
	return req, nil
}

// readPhoto reads at most limit+1 bytes so an understated header size still
// trips the size check downstream.
func readPhoto(header *multipart.FileHeader, limit int64) (dto.PhotoUpload, error) {
	file, err := header.Open()
	if err != nil {
		return dto.PhotoUpload{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return dto.PhotoUpload{}, err
	}
	return dto.PhotoUpload{Filename: header.Filename, Size: int64(len(data)), Data: data}, nil
}

// List godoc
// @Summary List collection requests
// @Description Results are scoped to the caller's role
// @Tags Collection Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /collection-requests [get]
func (h *CollectionRequestHandler) List(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.CollectionRequestQuery{Limit: limit, Offset: offset}
	for _, status := range csvQuery(c, "status") {
		query.Status = append(query.Status, models.RequestStatus(status))
	}

	requests, err := h.requests.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Collection request detail
// @Tags Collection Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collection-requests/{id} [get]
func (h *CollectionRequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Assign godoc
// @Summary Assign a collector
// @Description Sets the recycling center and collector; earnings bookkeeping failures are reported, not raised
// @Tags Collection Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.AssignCollectorRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /collection-requests/{id}/assign [post]
func (h *CollectionRequestHandler) Assign(c *gin.Context) {
	var req dto.AssignCollectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid assignment payload"))
		return
	}
	result, err := h.assignments.Assign(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, bookkeepingWarnings(result.Bookkeeping))
}
