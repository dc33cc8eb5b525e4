package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ListEntries(ctx context.Context, entity, entityID string, page, perPage int) ([]*audit.Entry, int64, error) {
	args := m.Called(ctx, entity, entityID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*audit.Entry), args.Get(1).(int64), args.Error(2)
}

func setupAuditTest() (*gin.Engine, *MockAuditService) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockAuditService)
	h := NewAuditHandler(testHandlerLogger(), mockService)

	router := gin.New()
	router.GET("/audit-log", h.List)

	return router, mockService
}

func TestAuditHandler_List(t *testing.T) {
	t.Run("PaginatedResponseCarriesMeta", func(t *testing.T) {
		router, mockService := setupAuditTest()

		entry, err := audit.NewEntry("tester", shared.AuditActionCreate, "diesel_record", uuid.NewString(), "manual entry", nil, nil)
		require.NoError(t, err)

		mockService.On("ListEntries", mock.Anything, "", "", 2, 10).Return([]*audit.Entry{entry}, int64(31), nil)

		w := performJSON(router, http.MethodGet, "/audit-log?page=2&per_page=10", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.Meta)
		assert.Equal(t, 2, response.Meta.Page)
		assert.Equal(t, 10, response.Meta.PerPage)
		assert.Equal(t, 31, response.Meta.TotalItems)
		assert.Equal(t, 4, response.Meta.TotalPages)
	})

	t.Run("EntityFilterForwarded", func(t *testing.T) {
		router, mockService := setupAuditTest()
		recordID := uuid.NewString()

		mockService.On("ListEntries", mock.Anything, "diesel_record", recordID, 1, 20).Return([]*audit.Entry{}, int64(0), nil)

		w := performJSON(router, http.MethodGet, "/audit-log?entity=diesel_record&entity_id="+recordID, nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NegativePageRejected", func(t *testing.T) {
		router, mockService := setupAuditTest()

		w := performJSON(router, http.MethodGet, "/audit-log?page=-1", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ListEntries", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
