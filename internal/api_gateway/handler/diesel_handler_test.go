package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
)

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) CreateRecord(ctx context.Context, actor string, in *service.RecordInput) (*diesel.Record, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diesel.Record), args.Error(1)
}

func (m *MockRecordService) GetRecord(ctx context.Context, id uuid.UUID) (*diesel.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diesel.Record), args.Error(1)
}

func (m *MockRecordService) ListRecords(ctx context.Context, fleetNumber string, page, perPage int) ([]*diesel.Record, error) {
	args := m.Called(ctx, fleetNumber, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*diesel.Record), args.Error(1)
}

func (m *MockRecordService) UpdateRecord(ctx context.Context, actor string, id uuid.UUID, in *service.RecordUpdate) (*diesel.Record, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diesel.Record), args.Error(1)
}

func (m *MockRecordService) ApplyDebrief(ctx context.Context, actor string, id uuid.UUID, date time.Time, signedBy, notes string) (*diesel.Record, error) {
	args := m.Called(ctx, actor, id, date, signedBy, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diesel.Record), args.Error(1)
}

func (m *MockRecordService) RecordProbe(ctx context.Context, actor string, id uuid.UUID, reading *decimal.Decimal, verify bool) (*diesel.Record, error) {
	args := m.Called(ctx, actor, id, reading, verify)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diesel.Record), args.Error(1)
}

func (m *MockRecordService) Allocate(ctx context.Context, actor string, id, tripID uuid.UUID) error {
	args := m.Called(ctx, actor, id, tripID)
	return args.Error(0)
}

func (m *MockRecordService) Deallocate(ctx context.Context, actor string, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockRecordService) DeleteRecord(ctx context.Context, actor string, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockRecordService) ExportCSV(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupDieselTest() (*gin.Engine, *MockRecordService) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockRecordService)
	h := NewDieselHandler(testHandlerLogger(), mockService)

	router := gin.New()
	router.POST("/diesel-records", h.Create)
	router.GET("/diesel-records", h.List)
	router.GET("/diesel-records/export", h.Export)
	router.GET("/diesel-records/:id", h.GetByID)
	router.PUT("/diesel-records/:id", h.Update)
	router.DELETE("/diesel-records/:id", h.Delete)
	router.POST("/diesel-records/:id/debrief", h.Debrief)
	router.PUT("/diesel-records/:id/probe", h.Probe)
	router.POST("/diesel-records/:id/allocate", h.Allocate)
	router.POST("/diesel-records/:id/deallocate", h.Deallocate)

	return router, mockService
}

func sampleRecord(t *testing.T) *diesel.Record {
	t.Helper()
	rec, err := diesel.NewRecord("21H", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("450.5"), decimal.RequireFromString("9912.00"), "ZAR")
	require.NoError(t, err)
	return rec
}

func performJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDieselHandler_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockService := setupDieselTest()
		rec := sampleRecord(t)

		mockService.On("CreateRecord", mock.Anything, "j.mokoena", mock.MatchedBy(func(in *service.RecordInput) bool {
			return in.FleetNumber == "21H" && in.LitresFilled.Equal(decimal.RequireFromString("450.5"))
		})).Return(rec, nil)

		body := map[string]interface{}{
			"fleet_number":  "21H",
			"date":          "2026-03-14",
			"litres_filled": "450.5",
			"total_cost":    "9912.00",
			"km_reading":    152300,
		}
		w := performJSON(router, http.MethodPost, "/diesel-records", body, map[string]string{ActorHeader: "j.mokoena"})

		assert.Equal(t, http.StatusCreated, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var got diesel.Record
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, "21H", got.FleetNumber)

		mockService.AssertExpectations(t)
	})

	t.Run("MissingActorDefaultsToSystem", func(t *testing.T) {
		router, mockService := setupDieselTest()
		rec := sampleRecord(t)

		mockService.On("CreateRecord", mock.Anything, "system", mock.Anything).Return(rec, nil)

		body := map[string]interface{}{
			"fleet_number":  "21H",
			"date":          "2026-03-14",
			"litres_filled": "450.5",
		}
		w := performJSON(router, http.MethodPost, "/diesel-records", body, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingRequiredField", func(t *testing.T) {
		router, mockService := setupDieselTest()

		body := map[string]interface{}{"fleet_number": "21H", "date": "2026-03-14"}
		w := performJSON(router, http.MethodPost, "/diesel-records", body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnparseableDate", func(t *testing.T) {
		router, _ := setupDieselTest()

		body := map[string]interface{}{
			"fleet_number":  "21H",
			"date":          "14/03/2026",
			"litres_filled": "450.5",
		}
		w := performJSON(router, http.MethodPost, "/diesel-records", body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DuplicateConflict", func(t *testing.T) {
		router, mockService := setupDieselTest()

		mockService.On("CreateRecord", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, diesel.ErrDuplicateRecord{FleetNumber: "21H", Date: time.Now()})

		body := map[string]interface{}{
			"fleet_number":  "21H",
			"date":          "2026-03-14",
			"litres_filled": "450.5",
		}
		w := performJSON(router, http.MethodPost, "/diesel-records", body, nil)

		assert.Equal(t, http.StatusConflict, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "CONFLICT", response.Error.Code)
	})
}

func TestDieselHandler_GetByID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockService := setupDieselTest()
		rec := sampleRecord(t)

		mockService.On("GetRecord", mock.Anything, rec.ID).Return(rec, nil)

		w := performJSON(router, http.MethodGet, "/diesel-records/"+rec.ID.String(), nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		router, mockService := setupDieselTest()
		id := uuid.New()

		mockService.On("GetRecord", mock.Anything, id).Return(nil, diesel.ErrRecordNotFound{RecordID: id})

		w := performJSON(router, http.MethodGet, "/diesel-records/"+id.String(), nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("MalformedID", func(t *testing.T) {
		router, _ := setupDieselTest()

		w := performJSON(router, http.MethodGet, "/diesel-records/not-a-uuid", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDieselHandler_Update(t *testing.T) {
	t.Run("ConcurrentModificationConflict", func(t *testing.T) {
		router, mockService := setupDieselTest()
		id := uuid.New()

		mockService.On("UpdateRecord", mock.Anything, mock.Anything, id, mock.Anything).
			Return(nil, diesel.ErrConcurrentModification{RecordID: id})

		body := map[string]interface{}{"notes": "late fill"}
		w := performJSON(router, http.MethodPut, "/diesel-records/"+id.String(), body, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("PartialUpdatePassesOnlySetFields", func(t *testing.T) {
		router, mockService := setupDieselTest()
		rec := sampleRecord(t)

		mockService.On("UpdateRecord", mock.Anything, "system", rec.ID, mock.MatchedBy(func(in *service.RecordUpdate) bool {
			return in.Notes != nil && *in.Notes == "late fill" && in.LitresFilled == nil && in.TotalCost == nil
		})).Return(rec, nil)

		body := map[string]interface{}{"notes": "late fill"}
		w := performJSON(router, http.MethodPut, "/diesel-records/"+rec.ID.String(), body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestDieselHandler_Debrief(t *testing.T) {
	t.Run("AlreadyDebriefedConflict", func(t *testing.T) {
		router, mockService := setupDieselTest()
		id := uuid.New()

		mockService.On("ApplyDebrief", mock.Anything, mock.Anything, id, mock.Anything, "D. Erasmus", "").
			Return(nil, diesel.ErrAlreadyDebriefed)

		body := map[string]interface{}{"signed_by": "D. Erasmus"}
		w := performJSON(router, http.MethodPost, "/diesel-records/"+id.String()+"/debrief", body, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("SignerRequired", func(t *testing.T) {
		router, mockService := setupDieselTest()
		id := uuid.New()

		w := performJSON(router, http.MethodPost, "/diesel-records/"+id.String()+"/debrief", map[string]interface{}{}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ApplyDebrief", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDieselHandler_Probe(t *testing.T) {
	t.Run("ReadingRecorded", func(t *testing.T) {
		router, mockService := setupDieselTest()
		rec := sampleRecord(t)

		mockService.On("RecordProbe", mock.Anything, "system", rec.ID, mock.MatchedBy(func(d *decimal.Decimal) bool {
			return d != nil && d.Equal(decimal.RequireFromString("440.0"))
		}), false).Return(rec, nil)

		body := map[string]interface{}{"reading": "440.0"}
		w := performJSON(router, http.MethodPut, "/diesel-records/"+rec.ID.String()+"/probe", body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("EmptyRequestRejected", func(t *testing.T) {
		router, mockService := setupDieselTest()
		id := uuid.New()

		w := performJSON(router, http.MethodPut, "/diesel-records/"+id.String()+"/probe", map[string]interface{}{}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "RecordProbe", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDieselHandler_Allocate(t *testing.T) {
	router, mockService := setupDieselTest()
	recordID := uuid.New()
	tripID := uuid.New()

	mockService.On("Allocate", mock.Anything, "dispatcher", recordID, tripID).Return(nil)

	body := map[string]interface{}{"trip_id": tripID.String()}
	w := performJSON(router, http.MethodPost, "/diesel-records/"+recordID.String()+"/allocate", body,
		map[string]string{ActorHeader: "dispatcher"})

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestDieselHandler_Delete(t *testing.T) {
	router, mockService := setupDieselTest()
	id := uuid.New()

	mockService.On("DeleteRecord", mock.Anything, "system", id).Return(nil)

	w := performJSON(router, http.MethodDelete, "/diesel-records/"+id.String(), nil, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDieselHandler_Export(t *testing.T) {
	router, mockService := setupDieselTest()

	csv := []byte("fleetNumber,date,kmReading\n21H,2026-03-14,152300\n")
	mockService.On("ExportCSV", mock.Anything).Return(csv, nil)

	w := performJSON(router, http.MethodGet, "/diesel-records/export", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "diesel_records.csv")
	assert.Equal(t, string(csv), w.Body.String())
}
