package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type requestServiceFake struct {
	submitted  *dto.SubmitCollectionRequest
	submitErr  error
	lastQuery  dto.CollectionRequestQuery
	lastActor  *models.JWTClaims
	getErr     error
	assignReq  dto.AssignCollectorRequest
	assignResp *models.AssignmentResult
	assignErr  error
}

func (f *requestServiceFake) Submit(_ context.Context, req dto.SubmitCollectionRequest, actor *models.JWTClaims) (*models.CollectionRequest, error) {
	f.submitted = &req
	f.lastActor = actor
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.CollectionRequest{
		ID:          "req-1",
		RequesterID: actor.UserID,
		TotalAmount: decimal.NewFromInt(1000),
		Status:      models.RequestStatusPending,
	}, nil
}

func (f *requestServiceFake) List(_ context.Context, query dto.CollectionRequestQuery, actor *models.JWTClaims) ([]models.CollectionRequest, error) {
	f.lastQuery = query
	f.lastActor = actor
	return []models.CollectionRequest{{ID: "req-1"}}, nil
}

func (f *requestServiceFake) Get(_ context.Context, id string, _ *models.JWTClaims) (*models.CollectionRequest, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.CollectionRequest{ID: id}, nil
}

func (f *requestServiceFake) Assign(_ context.Context, requestID string, req dto.AssignCollectorRequest, _ *models.JWTClaims) (*models.AssignmentResult, error) {
	f.assignReq = req
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	if f.assignResp != nil {
		return f.assignResp, nil
	}
	return &models.AssignmentResult{Request: &models.CollectionRequest{ID: requestID}}, nil
}

func TestCollectionRequestHandlerSubmitJSON(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake)

	body := mustJSON(t, map[string]interface{}{
		"items":          []map[string]interface{}{{"category": "laptop", "quantity": 1}},
		"preferred_date": "2026-03-05",
		"time_slot":      "morning",
		"contact_name":   "Ada",
		"contact_phone":  "+1 555 010 0100",
		"address":        "1 Main St",
	})
	c, w := newGinContext(http.MethodPost, "/collection-requests", body)
	withClaims(c, publicClaims)

	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, fake.submitted)
	assert.Equal(t, "laptop", fake.submitted.Items[0].Category)
	assert.Equal(t, "user-1", fake.lastActor.UserID)
	assert.Contains(t, w.Body.String(), `"id":"req-1"`)
}

func TestCollectionRequestHandlerSubmitMultipart(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("items", `[{"category":"mobile_phone","quantity":2}]`))
	require.NoError(t, mw.WriteField("preferred_date", "2026-03-05"))
	require.NoError(t, mw.WriteField("time_slot", "afternoon"))
	require.NoError(t, mw.WriteField("contact_name", "Ada"))
	require.NoError(t, mw.WriteField("contact_phone", "+1 555 010 0100"))
	require.NoError(t, mw.WriteField("address", "1 Main St"))
	part, err := mw.CreateFormFile("photos", "front.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	c, w := newGinContext(http.MethodPost, "/collection-requests", buf.Bytes())
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	withClaims(c, publicClaims)

	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, fake.submitted)
	assert.Equal(t, []dto.ItemLine{{Category: "mobile_phone", Quantity: 2}}, fake.submitted.Items)
	assert.Equal(t, "afternoon", fake.submitted.TimeSlot)
	require.Len(t, fake.submitted.Photos, 1)
	assert.Equal(t, "front.jpg", fake.submitted.Photos[0].Filename)
	assert.Equal(t, int64(4), fake.submitted.Photos[0].Size)
}

func TestCollectionRequestHandlerSubmitRejectsMalformedItems(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("items", `not-json`))
	require.NoError(t, mw.Close())

	c, w := newGinContext(http.MethodPost, "/collection-requests", buf.Bytes())
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	withClaims(c, publicClaims)

	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "items", env.Error.Field)
	assert.Nil(t, fake.submitted)
}

func multipartPhotos(t *testing.T, photos ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("items", `[{"category":"laptop","quantity":1}]`))
	for i, data := range photos {
		part, err := mw.CreateFormFile("photos", fmt.Sprintf("photo-%d.jpg", i))
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCollectionRequestHandlerSubmitRejectsOversizedPhotoBeforeReading(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake, WithPhotoLimits(5, 10))

	body, contentType := multipartPhotos(t, bytes.Repeat([]byte{0xFF}, 11))
	c, w := newGinContext(http.MethodPost, "/collection-requests", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	withClaims(c, publicClaims)

	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "photos", decodeEnvelope(t, w).Error.Field)
	assert.Nil(t, fake.submitted)
}

func TestCollectionRequestHandlerSubmitRejectsTooManyPhotos(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake, WithPhotoLimits(2, 1024))

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	body, contentType := multipartPhotos(t, jpeg, jpeg, jpeg)
	c, w := newGinContext(http.MethodPost, "/collection-requests", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	withClaims(c, publicClaims)

	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "photos", decodeEnvelope(t, w).Error.Field)
	assert.Nil(t, fake.submitted)
}

func TestCollectionRequestHandlerSubmitCapsBody(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake, WithPhotoLimits(1, 1))

	body, contentType := multipartPhotos(t, bytes.Repeat([]byte{0xFF}, 2<<20))
	c, w := newGinContext(http.MethodPost, "/collection-requests", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	withClaims(c, publicClaims)

	h.Submit(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeEnvelope(t, w).Error.Code)
	assert.Nil(t, fake.submitted)
}

func TestCollectionRequestHandlerSubmitPropagatesServiceError(t *testing.T) {
	fake := &requestServiceFake{submitErr: appErrors.Field("preferred_date", "pickups are not available on Sundays")}
	h := NewCollectionRequestHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/collection-requests", []byte(`{"items":[]}`))
	withClaims(c, publicClaims)

	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "preferred_date", env.Error.Field)
}

func TestCollectionRequestHandlerList(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake)

	c, w := newGinContext(http.MethodGet, "/collection-requests?status=Pending,assigned&limit=5&offset=10", nil)
	withClaims(c, centerClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending, models.RequestStatusAssigned}, fake.lastQuery.Status)
	assert.Equal(t, 5, fake.lastQuery.Limit)
	assert.Equal(t, 10, fake.lastQuery.Offset)
	assert.Equal(t, "center-1", fake.lastActor.UserID)
}

func TestCollectionRequestHandlerListRejectsBadLimit(t *testing.T) {
	fake := &requestServiceFake{}
	h := NewCollectionRequestHandler(fake, fake)

	c, w := newGinContext(http.MethodGet, "/collection-requests?limit=-1", nil)
	withClaims(c, adminClaims)

	h.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", decodeEnvelope(t, w).Error.Field)
}

func TestCollectionRequestHandlerGetNotFound(t *testing.T) {
	fake := &requestServiceFake{getErr: appErrors.ErrNotFound}
	h := NewCollectionRequestHandler(fake, fake)

	c, w := newGinContext(http.MethodGet, "/collection-requests/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	withClaims(c, publicClaims)

	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollectionRequestHandlerAssignReportsBookkeeping(t *testing.T) {
	fake := &requestServiceFake{assignResp: &models.AssignmentResult{
		Request:     &models.CollectionRequest{ID: "req-1", Status: models.RequestStatusAssigned},
		Bookkeeping: models.Bookkeeping{Attempted: true, Error: "ledger unavailable"},
	}}
	h := NewCollectionRequestHandler(fake, fake)

	body := mustJSON(t, dto.AssignCollectorRequest{RecyclingCenterID: "center-1", CollectorID: "col-1"})
	c, w := newGinContext(http.MethodPost, "/collection-requests/req-1/assign", body)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, adminClaims)

	h.Assign(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "col-1", fake.assignReq.CollectorID)
	assert.Contains(t, w.Body.String(), `"error":"ledger unavailable"`)
	assert.Contains(t, w.Body.String(), `"succeeded":false`)
	assert.Contains(t, w.Body.String(), `"code":"EARNINGS_BOOKKEEPING_FAILED"`)
}

func TestCollectionRequestHandlerAssignMapsInvalidCollector(t *testing.T) {
	fake := &requestServiceFake{assignErr: appErrors.ErrInvalidCollector}
	h := NewCollectionRequestHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/collection-requests/req-1/assign", []byte(`{"collector_id":"col-x"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, adminClaims)

	h.Assign(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_COLLECTOR", decodeEnvelope(t, w).Error.Code)
}
