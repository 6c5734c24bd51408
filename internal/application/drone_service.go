package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
)

const recentlyUsedLimit = 7

// DroneService is the drone directory: search, list and operator bookmarks.
type DroneService struct {
	droneRepo  ports.DroneRepository
	pinnedRepo ports.PinnedDroneRepository
}

// NewDroneService creates a DroneService.
func NewDroneService(droneRepo ports.DroneRepository, pinnedRepo ports.PinnedDroneRepository) *DroneService {
	return &DroneService{
		droneRepo:  droneRepo,
		pinnedRepo: pinnedRepo,
	}
}

// ListDrones returns the whole directory.
func (s *DroneService) ListDrones(ctx context.Context) ([]*domain.Drone, error) {
	return s.droneRepo.FindAll(ctx)
}

// SearchDrones finds drones whose name matches the query. A blank query
// returns nothing rather than everything.
func (s *DroneService) SearchDrones(ctx context.Context, query string) ([]*domain.Drone, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Drone{}, nil
	}
	return s.droneRepo.SearchByName(ctx, query)
}

// GetDrone returns one directory entry.
func (s *DroneService) GetDrone(ctx context.Context, id uuid.UUID) (*domain.Drone, error) {
	return s.droneRepo.FindByID(ctx, id)
}

// PinDrone bookmarks a drone for the operator, optionally with a saved
// configuration template.
func (s *DroneService) PinDrone(ctx context.Context, operatorID, droneID uuid.UUID, config *domain.PinnedConfig) (*domain.PinnedDrone, error) {
	drone, err := s.droneRepo.FindByID(ctx, droneID)
	if err != nil {
		return nil, err
	}

	pinned := &domain.PinnedDrone{
		ID:         uuid.New(),
		DroneID:    drone.ID,
		DroneName:  drone.Name,
		OperatorID: operatorID,
		Config:     config,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.pinnedRepo.Pin(ctx, pinned); err != nil {
		return nil, err
	}
	return pinned, nil
}

// UnpinDrone removes a bookmark.
func (s *DroneService) UnpinDrone(ctx context.Context, operatorID, droneID uuid.UUID) error {
	return s.pinnedRepo.Unpin(ctx, operatorID, droneID)
}

// PinnedDrones lists the operator's bookmarks.
func (s *DroneService) PinnedDrones(ctx context.Context, operatorID uuid.UUID) ([]*domain.PinnedDrone, error) {
	return s.pinnedRepo.FindByOperator(ctx, operatorID)
}

// RecentlyUsed lists the operator's most recent deployments, capped at 7.
func (s *DroneService) RecentlyUsed(ctx context.Context, operatorID uuid.UUID) ([]*domain.RecentlyUsedDrone, error) {
	return s.pinnedRepo.FindRecentlyUsed(ctx, operatorID, recentlyUsedLimit)
}
