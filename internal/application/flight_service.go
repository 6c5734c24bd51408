package application

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
)

// FlightService is the flight-history collaborator of the deployment
// workflow. It persists outcome records together with the overlay image the
// operator saw, and serves them back for history review.
type FlightService struct {
	flightRepo   ports.FlightRepository
	pinnedRepo   ports.PinnedDroneRepository
	overlayStore ports.OverlayStore
	log          zerolog.Logger
}

// NewFlightService creates a FlightService.
func NewFlightService(
	flightRepo ports.FlightRepository,
	pinnedRepo ports.PinnedDroneRepository,
	overlayStore ports.OverlayStore,
	logger zerolog.Logger,
) *FlightService {
	return &FlightService{
		flightRepo:   flightRepo,
		pinnedRepo:   pinnedRepo,
		overlayStore: overlayStore,
		log:          logger.With().Str("component", "flight_service").Logger(),
	}
}

// SaveOutcome appends the outcome record. The overlay image, when present, is
// stored first so the record can reference it; a failed image store does not
// block the record itself. The record must be written before the caller wipes
// its session.
func (s *FlightService) SaveOutcome(ctx context.Context, record *domain.FlightRecord, overlayDataURI string) (uuid.UUID, error) {
	if overlayDataURI != "" {
		key, err := s.overlayStore.SaveOverlayImage(ctx, record.ID, overlayDataURI)
		if err != nil {
			s.log.Warn().Err(err).Stringer("flight_id", record.ID).Msg("overlay image not stored")
		} else {
			record.OverlayObjectKey = key
		}
	}

	if err := s.flightRepo.Save(ctx, record); err != nil {
		return uuid.Nil, fmt.Errorf("saving flight record: %w", err)
	}

	if err := s.pinnedRepo.AddRecentlyUsed(ctx, record.OperatorID, record.DroneID, record.DroneName); err != nil {
		s.log.Warn().Err(err).Msg("recently-used not updated")
	}
	return record.ID, nil
}

// History lists the operator's flight records.
func (s *FlightService) History(ctx context.Context, operatorID uuid.UUID) ([]*domain.FlightRecord, error) {
	return s.flightRepo.FindByOperator(ctx, operatorID)
}

// OverlayImage streams the stored overlay image of a flight. The second
// return value is the content type.
func (s *FlightService) OverlayImage(ctx context.Context, flightID uuid.UUID) (io.ReadCloser, string, error) {
	record, err := s.flightRepo.FindByID(ctx, flightID)
	if err != nil {
		return nil, "", err
	}
	if record.OverlayObjectKey == "" {
		return nil, "", fmt.Errorf("flight %s has no stored overlay", flightID)
	}
	return s.overlayStore.GetOverlayImage(ctx, record.OverlayObjectKey)
}
