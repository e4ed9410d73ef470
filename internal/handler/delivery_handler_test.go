package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocycle/ewaste-api/internal/dto"
	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type deliveryServiceFake struct {
	created    *dto.CreateDeliveryRequest
	createErr  error
	lastQuery  dto.DeliveryQuery
	updateReq  dto.UpdateDeliveryStatusRequest
	updateErr  error
	confirmReq *dto.ConfirmDeliveryRequest
	confirmErr error
}

func (f *deliveryServiceFake) Create(_ context.Context, req dto.CreateDeliveryRequest, actor *models.JWTClaims) (*models.Delivery, error) {
	f.created = &req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Delivery{ID: "del-1", CollectionRequestID: req.CollectionRequestID, CollectorID: &actor.UserID, Status: models.DeliveryStatusPendingDelivery}, nil
}

func (f *deliveryServiceFake) List(_ context.Context, query dto.DeliveryQuery, _ *models.JWTClaims) ([]models.Delivery, error) {
	f.lastQuery = query
	return []models.Delivery{}, nil
}

func (f *deliveryServiceFake) UpdateStatus(_ context.Context, id string, req dto.UpdateDeliveryStatusRequest, _ *models.JWTClaims) (*models.Delivery, error) {
	f.updateReq = req
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.Delivery{ID: id, Status: req.Status}, nil
}

func (f *deliveryServiceFake) Confirm(_ context.Context, deliveryID string, req dto.ConfirmDeliveryRequest, _ *models.JWTClaims) (*models.ConfirmationResult, error) {
	f.confirmReq = &req
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &models.ConfirmationResult{
		Delivery:            &models.Delivery{ID: deliveryID, Status: models.DeliveryStatusProcessed},
		CommissionProcessed: true,
		Bookkeeping:         models.Bookkeeping{Attempted: true, Succeeded: true},
	}, nil
}

func TestDeliveryHandlerCreate(t *testing.T) {
	fake := &deliveryServiceFake{}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/deliveries", []byte(`{"collection_request_id":"req-1"}`))
	withClaims(c, collectorClaims)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "req-1", fake.created.CollectionRequestID)
	assert.Contains(t, w.Body.String(), `"status":"pending_delivery"`)
}

func TestDeliveryHandlerCreateConflict(t *testing.T) {
	fake := &deliveryServiceFake{createErr: appErrors.Clone(appErrors.ErrConflict, "delivery already exists")}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/deliveries", []byte(`{"collection_request_id":"req-1"}`))
	withClaims(c, collectorClaims)

	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestDeliveryHandlerCreateRejectsMalformedBody(t *testing.T) {
	fake := &deliveryServiceFake{}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/deliveries", []byte(`{`))
	withClaims(c, collectorClaims)

	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, fake.created)
}

func TestDeliveryHandlerListParsesStatuses(t *testing.T) {
	fake := &deliveryServiceFake{}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodGet, "/deliveries?status=delivered&status=received", nil)
	withClaims(c, centerClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.DeliveryStatus{models.DeliveryStatusDelivered, models.DeliveryStatusReceived}, fake.lastQuery.Status)
}

func TestDeliveryHandlerUpdateStatusInvalidTransition(t *testing.T) {
	fake := &deliveryServiceFake{updateErr: appErrors.ErrInvalidTransition}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPatch, "/deliveries/del-1/status", []byte(`{"status":"processed"}`))
	c.Params = gin.Params{{Key: "id", Value: "del-1"}}
	withClaims(c, centerClaims)

	h.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.DeliveryStatusProcessed, fake.updateReq.Status)
	assert.Equal(t, "INVALID_TRANSITION", decodeEnvelope(t, w).Error.Code)
}

func TestDeliveryHandlerConfirmWithoutBody(t *testing.T) {
	fake := &deliveryServiceFake{}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/deliveries/del-1/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "del-1"}}
	withClaims(c, centerClaims)

	h.Confirm(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fake.confirmReq)
	assert.Empty(t, fake.confirmReq.Notes)
	assert.Contains(t, w.Body.String(), `"commission_processed":true`)
	assert.NotContains(t, w.Body.String(), `"warnings"`)
}

func TestDeliveryHandlerConfirmPassesNotes(t *testing.T) {
	fake := &deliveryServiceFake{}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/deliveries/del-1/confirm", []byte(`{"notes":"two screens cracked"}`))
	c.Params = gin.Params{{Key: "id", Value: "del-1"}}
	withClaims(c, centerClaims)

	h.Confirm(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "two screens cracked", fake.confirmReq.Notes)
}

func TestDeliveryHandlerConfirmForbidden(t *testing.T) {
	fake := &deliveryServiceFake{confirmErr: appErrors.ErrForbidden}
	h := NewDeliveryHandler(fake, fake)

	c, w := newGinContext(http.MethodPost, "/deliveries/del-1/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "del-1"}}
	withClaims(c, collectorClaims)

	h.Confirm(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}
