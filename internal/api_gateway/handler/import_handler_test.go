package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) SubmitBatch(ctx context.Context, actor, source, correlationID string, rows []shared.ImportRow) (*shared.ImportBatch, error) {
	args := m.Called(ctx, actor, source, correlationID, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.ImportBatch), args.Error(1)
}

func (m *MockImportService) Trigger(ctx context.Context, source string) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func setupImportTest() (*gin.Engine, *MockImportService) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockImportService)
	h := NewImportHandler(testHandlerLogger(), mockService)

	router := gin.New()
	router.POST("/imports", h.Submit)
	router.POST("/imports/trigger", h.Trigger)

	return router, mockService
}

func TestImportHandler_Submit(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		router, mockService := setupImportTest()

		rows := []shared.ImportRow{{TransactionDate: "2026-03-14", FleetNumber: "21H", Litres: "450.5"}}
		batch := &shared.ImportBatch{Source: "fuelcard", Rows: rows}

		mockService.On("SubmitBatch", mock.Anything, "importer", "fuelcard", mock.Anything, mock.MatchedBy(func(r []shared.ImportRow) bool {
			return len(r) == 1 && r[0].FleetNumber == "21H"
		})).Return(batch, nil)

		body := map[string]interface{}{
			"source": "fuelcard",
			"rows": []map[string]string{
				{"transaction_date": "2026-03-14", "fleet_number": "21H", "litres": "450.5"},
			},
		}
		w := performJSON(router, http.MethodPost, "/imports", body, map[string]string{ActorHeader: "importer"})

		assert.Equal(t, http.StatusAccepted, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response.Data.(map[string]interface{})
		assert.Equal(t, "QUEUED", data["status"])
		assert.Equal(t, float64(1), data["rows"])

		mockService.AssertExpectations(t)
	})

	t.Run("MissingRowsRejected", func(t *testing.T) {
		router, mockService := setupImportTest()

		w := performJSON(router, http.MethodPost, "/imports", map[string]interface{}{"source": "fuelcard"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "SubmitBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ValidationErrorMapsToBadRequest", func(t *testing.T) {
		router, mockService := setupImportTest()

		mockService.On("SubmitBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, shared.ValidationError{Field: "rows", Reason: "batch carries no rows"})

		body := map[string]interface{}{
			"rows": []map[string]string{{"fleet_number": "21H"}},
		}
		w := performJSON(router, http.MethodPost, "/imports", body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("PublishFailureIsInternal", func(t *testing.T) {
		router, mockService := setupImportTest()

		mockService.On("SubmitBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("broker unavailable"))

		body := map[string]interface{}{
			"rows": []map[string]string{{"fleet_number": "21H"}},
		}
		w := performJSON(router, http.MethodPost, "/imports", body, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestImportHandler_Trigger(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		router, mockService := setupImportTest()

		mockService.On("Trigger", mock.Anything, "fuelcard").Return(nil)

		w := performJSON(router, http.MethodPost, "/imports/trigger", map[string]interface{}{"source": "fuelcard"}, nil)

		assert.Equal(t, http.StatusAccepted, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response.Data.(map[string]interface{})
		assert.Equal(t, "TRIGGERED", data["status"])
	})

	t.Run("ExhaustedRetriesMapToBadGateway", func(t *testing.T) {
		router, mockService := setupImportTest()

		mockService.On("Trigger", mock.Anything, mock.Anything).
			Return(shared.ErrTriggerFailed{Attempts: 5, Last: errors.New("connection refused")})

		w := performJSON(router, http.MethodPost, "/imports/trigger", map[string]interface{}{}, nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "TRIGGER_FAILED", response.Error.Code)
	})
}
