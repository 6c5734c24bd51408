package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
)

// MockCalculationService simulates the calculation service in-process. It is
// wired in when no service URL is configured, so the planner works end to end
// in demo and development environments.
type MockCalculationService struct {
	log zerolog.Logger
}

// NewMockCalculationService creates a MockCalculationService.
func NewMockCalculationService(logger zerolog.Logger) *MockCalculationService {
	return &MockCalculationService{
		log: logger.With().Str("component", "mock_calculation").Logger(),
	}
}

// Calculate waits a realistic two to three seconds, then returns a generated
// radial-gradient zone image as a data URI.
func (s *MockCalculationService) Calculate(ctx context.Context, req ports.CalculationRequest) (*domain.CalculationResult, error) {
	delay := 2*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	s.log.Debug().
		Str("drone", req.DroneName).
		Float64("drone_altitude", req.DroneAltitude).
		Msg("computed communication zone")

	return &domain.CalculationResult{
		ImageData:    zoneImageDataURI(req),
		CalculatedAt: time.Now().UTC(),
	}, nil
}

// zoneImageDataURI draws a semi-transparent coverage blob whose shape varies
// with the configuration, so repeated calculations look distinct on the map.
func zoneImageDataURI(req ports.CalculationRequest) string {
	seed := int64(req.ControllerAltitude*1000) ^ int64(req.DroneAltitude*31)
	rng := rand.New(rand.NewSource(seed))

	cx := 200 + rng.Intn(112)
	cy := 200 + rng.Intn(112)
	r := 140 + rng.Intn(80)

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="512" height="512" viewBox="0 0 512 512">
<defs>
<radialGradient id="zone" cx="50%%" cy="50%%" r="50%%">
<stop offset="0%%" stop-color="#22c55e" stop-opacity="0.85"/>
<stop offset="60%%" stop-color="#84cc16" stop-opacity="0.55"/>
<stop offset="100%%" stop-color="#eab308" stop-opacity="0.15"/>
</radialGradient>
</defs>
<circle cx="%d" cy="%d" r="%d" fill="url(#zone)"/>
</svg>`, cx, cy, r)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// MockApprovalService simulates the control center. Roughly four out of five
// requests come back approved.
type MockApprovalService struct {
	log zerolog.Logger
}

// NewMockApprovalService creates a MockApprovalService.
func NewMockApprovalService(logger zerolog.Logger) *MockApprovalService {
	return &MockApprovalService{
		log: logger.With().Str("component", "mock_approval").Logger(),
	}
}

func (s *MockApprovalService) RequestApproval(ctx context.Context, droneID uuid.UUID, droneName string) (*domain.ApprovalDecision, error) {
	delay := 1500*time.Millisecond + time.Duration(rand.Int63n(int64(time.Second)))
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	approved := rand.Float64() < 0.8
	message := fmt.Sprintf("Launch of %s approved by control center", droneName)
	if !approved {
		message = fmt.Sprintf("Launch of %s denied: airspace restriction in effect", droneName)
	}

	s.log.Debug().
		Stringer("drone_id", droneID).
		Bool("approved", approved).
		Msg("control center decision")

	return &domain.ApprovalDecision{
		Approved:    approved,
		Message:     message,
		RespondedAt: time.Now().UTC(),
	}, nil
}
