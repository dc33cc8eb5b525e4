package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// MockProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessBatch(ctx context.Context, batch *shared.ImportBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	logger := slog.Default()

	validBatch := &shared.ImportBatch{
		BatchID: uuid.New(),
		Source:  "fuel_card_statement",
		Actor:   "import-processor",
		Rows: []shared.ImportRow{
			{TransactionDate: "2026-03-14", FleetNumber: "21H", Litres: "450.5"},
		},
		CorrelationID: "corr1",
		Timestamp:     time.Now(),
	}

	validJSON, err := json.Marshal(validBatch)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		key           []byte
		value         []byte
		setupMocks    func(mockProcessingService *MockProcessingService, mockDLQPublisher *MockDeadLetterPublisher)
		expectedError error
	}{
		{
			name:  "successful processing",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(mockProcessingService *MockProcessingService, mockDLQPublisher *MockDeadLetterPublisher) {
				mockProcessingService.On("ProcessBatch", mock.Anything, mock.MatchedBy(func(batch *shared.ImportBatch) bool {
					return batch.BatchID == validBatch.BatchID
				})).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "processing error",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(mockProcessingService *MockProcessingService, mockDLQPublisher *MockDeadLetterPublisher) {
				mockProcessingService.On("ProcessBatch", mock.Anything, mock.Anything).Return(errors.New("processing error"))
			},
			expectedError: errors.New("processing import batch"),
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(mockProcessingService *MockProcessingService, mockDLQPublisher *MockDeadLetterPublisher) {
				mockDLQPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(nil)
			},
			expectedError: nil, // No error because message was successfully sent to DLQ
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(mockProcessingService *MockProcessingService, mockDLQPublisher *MockDeadLetterPublisher) {
				mockDLQPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("failed to unmarshal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProcessingService := &MockProcessingService{}
			mockDLQPublisher := &MockDeadLetterPublisher{}
			mockDLQPublisher.On("Close").Return(nil).Maybe()

			handler := NewImportEventHandler(logger, mockProcessingService, mockDLQPublisher)

			tt.setupMocks(mockProcessingService, mockDLQPublisher)
			ctx := context.Background()

			err := handler.HandleMessage(ctx, tt.key, tt.value)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockProcessingService.AssertExpectations(t)
			mockDLQPublisher.AssertExpectations(t)
		})
	}
}
