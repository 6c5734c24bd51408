package ports

import (
	"context"
	"io"

	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/pkg/geo"
)

// CalculationRequest carries the full deployment configuration to the
// communication-zone calculation service.
type CalculationRequest struct {
	DroneID            uuid.UUID   `json:"drone_id"`
	DroneName          string      `json:"drone_name"`
	ControllerAltitude float64     `json:"controller_altitude"`
	ControllerLat      float64     `json:"controller_lat"`
	ControllerLng      float64     `json:"controller_lng"`
	DroneAltitude      float64     `json:"drone_altitude"`
	DroneLat           float64     `json:"drone_lat"`
	DroneLng           float64     `json:"drone_lng"`
	Area               geo.Polygon `json:"area"`
}

// CalculationService computes a communication/visibility zone overlay image
// for a deployment configuration. Treated as an opaque remote function.
type CalculationService interface {
	Calculate(ctx context.Context, req CalculationRequest) (*domain.CalculationResult, error)
}

// ApprovalService asks the control center for a launch decision.
type ApprovalService interface {
	RequestApproval(ctx context.Context, droneID uuid.UUID, droneName string) (*domain.ApprovalDecision, error)
}

// OutcomePersister records a deployment outcome in the flight history,
// together with the overlay image that was shown to the operator.
type OutcomePersister interface {
	SaveOutcome(ctx context.Context, record *domain.FlightRecord, overlayDataURI string) (uuid.UUID, error)
}

// OverlayStore keeps computed overlay images for later history review.
type OverlayStore interface {
	SaveOverlayImage(ctx context.Context, flightID uuid.UUID, dataURI string) (string, error)
	GetOverlayImage(ctx context.Context, objectKey string) (io.ReadCloser, string, error)
}
