package ports

import (
	"context"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
)

// OperatorRepository persists operators registered by serial number.
type OperatorRepository interface {
	Save(ctx context.Context, operator *domain.Operator) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error)
	FindBySerialNumber(ctx context.Context, serialNumber string) (*domain.Operator, error)
}

// DroneRepository is the drone directory lookup.
type DroneRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Drone, error)
	FindAll(ctx context.Context) ([]*domain.Drone, error)
	SearchByName(ctx context.Context, query string) ([]*domain.Drone, error)
}

// PinnedDroneRepository stores operator bookmarks and recently used drones.
type PinnedDroneRepository interface {
	Pin(ctx context.Context, pinned *domain.PinnedDrone) error
	Unpin(ctx context.Context, operatorID, droneID uuid.UUID) error
	FindByOperator(ctx context.Context, operatorID uuid.UUID) ([]*domain.PinnedDrone, error)
	AddRecentlyUsed(ctx context.Context, operatorID, droneID uuid.UUID, droneName string) error
	FindRecentlyUsed(ctx context.Context, operatorID uuid.UUID, limit int) ([]*domain.RecentlyUsedDrone, error)
}

// FlightRepository is the append-only flight history store.
type FlightRepository interface {
	Save(ctx context.Context, record *domain.FlightRecord) error
	FindByOperator(ctx context.Context, operatorID uuid.UUID) ([]*domain.FlightRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.FlightRecord, error)
}
