package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleet-diesel-ledger/internal/domain/trip"
)

// TripServiceImpl implements the TripService interface
type TripServiceImpl struct {
	tripRepo trip.Repository
}

// NewTripService creates a new trip service
func NewTripService(tripRepo trip.Repository) TripService {
	return &TripServiceImpl{
		tripRepo: tripRepo,
	}
}

// GetTrip retrieves a trip with its cost ledger, returns ErrTripNotFound if not found
func (s *TripServiceImpl) GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error) {
	return s.tripRepo.GetByID(ctx, id)
}
