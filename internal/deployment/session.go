package deployment

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/pkg/geo"
)

// Phase is the operator-visible stage of deployment planning.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseConfiguring Phase = "configuring"
	PhaseCalculating Phase = "calculating"
	PhaseResult      Phase = "result"
)

// ControlCenterStatus tracks the launch-approval exchange. Approved and
// NotApproved are terminal for the session; only a full reset clears them.
type ControlCenterStatus string

const (
	ControlCenterIdle        ControlCenterStatus = "idle"
	ControlCenterSending     ControlCenterStatus = "sending"
	ControlCenterApproved    ControlCenterStatus = "approved"
	ControlCenterNotApproved ControlCenterStatus = "not_approved"
)

const defaultQuickRadiusMeters = 500

var (
	ErrInvalidTransition = errors.New("action not allowed in current phase")
	ErrNoDroneSelected   = errors.New("no drone selected")
	ErrApprovalPending   = errors.New("control center request already in flight")
	ErrApprovalFinal     = errors.New("control center decision is final for this session")
	ErrAlreadyLaunched   = errors.New("drone already launched")
	ErrNotLaunched       = errors.New("drone has not been launched")
)

var validate = validator.New()

// submission is the configuration checked before entering the calculating
// phase. The polygon size rule is checked separately since validator tags
// cannot see the derived-location invariant.
type submission struct {
	ControllerAltitude float64         `validate:"gt=0"`
	ControllerLocation *geo.Coordinate `validate:"required"`
	DroneAltitude      float64         `validate:"gt=0"`
}

// Session is one operator's deployment-planning state. It has a single writer,
// the owning Workflow; everything else reads copies via Snapshot.
type Session struct {
	ID         uuid.UUID
	OperatorID uuid.UUID

	// generation advances on every wipe; async completions that captured an
	// older generation are stale and must be dropped.
	generation uint64

	phase         Phase
	placement     Placement
	selectedDrone *domain.SelectedDrone
	controller    domain.ControllerConfig
	drone         domain.DroneConfig
	result        *domain.CalculationResult
	controlCenter ControlCenterStatus
	ccMessage     string
	launched      bool

	operatorLocation *geo.Coordinate
	quickRadius      float64

	bottomSheetExpanded bool
	configFormOpen      bool
	lastError           string
}

// NewSession creates an idle session for an operator.
func NewSession(operatorID uuid.UUID) *Session {
	return &Session{
		ID:            uuid.New(),
		OperatorID:    operatorID,
		phase:         PhaseIdle,
		controlCenter: ControlCenterIdle,
		quickRadius:   defaultQuickRadiusMeters,
	}
}

// Generation returns the current wipe generation.
func (s *Session) Generation() uint64 {
	return s.generation
}

// SetOperatorLocation records the operator's own position. It survives resets.
func (s *Session) SetOperatorLocation(c geo.Coordinate) {
	loc := c
	s.operatorLocation = &loc
}

// SetBottomSheetExpanded toggles the drone list sheet.
func (s *Session) SetBottomSheetExpanded(expanded bool) {
	s.bottomSheetExpanded = expanded
}

// SelectDrone moves idle → configuring, opening the configuration form and
// collapsing the bottom sheet. A pinned template, when given, prefills both
// configs; the drone location is re-derived from the template area rather than
// trusted from storage.
func (s *Session) SelectDrone(d domain.SelectedDrone, template *domain.PinnedConfig) error {
	if s.phase != PhaseIdle {
		return fmt.Errorf("%w: select drone in phase %s", ErrInvalidTransition, s.phase)
	}

	drone := d
	s.selectedDrone = &drone
	s.phase = PhaseConfiguring
	s.configFormOpen = true
	s.bottomSheetExpanded = false
	s.lastError = ""

	if template != nil {
		s.controller = domain.ControllerConfig{
			Altitude: template.ControllerAltitude,
			Location: cloneCoordinate(template.ControllerLocation),
		}
		s.drone = domain.DroneConfig{Altitude: template.DroneAltitude}
		if len(template.DroneArea) >= 3 {
			s.setDroneArea(template.DroneArea)
		}
	}
	return nil
}

// SetControllerAltitude updates the controller altitude while configuring.
func (s *Session) SetControllerAltitude(altitude float64) error {
	if s.phase != PhaseConfiguring {
		return fmt.Errorf("%w: set controller altitude in phase %s", ErrInvalidTransition, s.phase)
	}
	s.controller.Altitude = altitude
	return nil
}

// SetDroneAltitude updates the drone altitude while configuring.
func (s *Session) SetDroneAltitude(altitude float64) error {
	if s.phase != PhaseConfiguring {
		return fmt.Errorf("%w: set drone altitude in phase %s", ErrInvalidTransition, s.phase)
	}
	s.drone.Altitude = altitude
	return nil
}

// SetQuickRadius updates the radius used by the single-click placement variant.
func (s *Session) SetQuickRadius(radiusMeters float64) error {
	if radiusMeters <= 0 {
		return fmt.Errorf("quick radius must be positive, got %v", radiusMeters)
	}
	s.quickRadius = radiusMeters
	return nil
}

// EnterPlacement arms the map for the next click or drawing. Valid only while
// configuring, since placements belong to the open configuration form.
func (s *Session) EnterPlacement(target Mode) error {
	if s.phase != PhaseConfiguring {
		return fmt.Errorf("%w: enter placement in phase %s", ErrInvalidTransition, s.phase)
	}
	return s.placement.Enter(target)
}

// CancelPlacement disarms the map without consuming anything.
func (s *Session) CancelPlacement() {
	s.placement.Cancel()
}

// ConsumeClick resolves a map click against the active placement mode. Clicks
// with no active mode are reported unhandled and must be ignored by the caller.
func (s *Session) ConsumeClick(c geo.Coordinate) (handled bool) {
	mode, ok := s.placement.ConsumeClick()
	if !ok {
		return false
	}

	switch mode {
	case ModeController:
		loc := c
		s.controller.Location = &loc
	case ModeDrone:
		// Legacy single-click placement: the operational area becomes a circle
		// around the click, which keeps location derived from the area.
		s.setDroneArea(geo.CirclePolygon(c, s.quickRadius, 64))
	}
	return true
}

// ConsumeDrawEnd resolves a completed drawing. The drawn polygon and the
// derived drone location are set in the same update; one is never set without
// the other.
func (s *Session) ConsumeDrawEnd(p geo.Polygon) (handled bool, err error) {
	if !s.placement.ConsumeDrawEnd() {
		return false, nil
	}
	if err := p.Validate(); err != nil {
		return true, fmt.Errorf("drawn area rejected: %w", err)
	}
	s.setDroneArea(p)
	return true, nil
}

// setDroneArea is the only writer of DrawnArea and the derived Location.
func (s *Session) setDroneArea(p geo.Polygon) {
	area := make(geo.Polygon, len(p))
	copy(area, p)
	centroid := geo.Centroid(area)

	s.drone.DrawnArea = area
	s.drone.Location = &centroid
}

// ClearDroneArea removes the drawn area and, with it, the derived location.
func (s *Session) ClearDroneArea() {
	s.drone.DrawnArea = nil
	s.drone.Location = nil
}

// PlacementMode returns the active placement mode.
func (s *Session) PlacementMode() Mode {
	return s.placement.Mode()
}

// ValidateSubmission checks the configuring → calculating gate: positive
// altitudes, a placed controller and an operational area of at least 3 points.
func (s *Session) ValidateSubmission() error {
	if s.selectedDrone == nil {
		return ErrNoDroneSelected
	}
	sub := submission{
		ControllerAltitude: s.controller.Altitude,
		ControllerLocation: s.controller.Location,
		DroneAltitude:      s.drone.Altitude,
	}
	if err := validate.Struct(sub); err != nil {
		return fmt.Errorf("configuration incomplete: %w", err)
	}
	if err := s.drone.DrawnArea.Validate(); err != nil {
		return fmt.Errorf("operational area invalid: %w", err)
	}
	return nil
}

// BeginCalculation moves configuring → calculating after validation. On
// validation failure the phase does not move and the form stays open.
func (s *Session) BeginCalculation() error {
	if s.phase != PhaseConfiguring {
		return fmt.Errorf("%w: submit in phase %s", ErrInvalidTransition, s.phase)
	}
	if err := s.ValidateSubmission(); err != nil {
		s.lastError = err.Error()
		return err
	}

	s.phase = PhaseCalculating
	s.configFormOpen = false
	s.placement.Cancel()
	s.lastError = ""
	return nil
}

// CompleteCalculation applies a calculation outcome. Completions carrying a
// stale generation, or arriving outside the calculating phase, are dropped.
func (s *Session) CompleteCalculation(gen uint64, result *domain.CalculationResult, callErr error) (applied bool) {
	if gen != s.generation || s.phase != PhaseCalculating {
		return false
	}

	if callErr != nil {
		s.phase = PhaseConfiguring
		s.configFormOpen = true
		s.lastError = fmt.Sprintf("calculation failed: %v", callErr)
		return true
	}

	s.result = result
	s.phase = PhaseResult
	s.lastError = ""
	return true
}

// BeginApproval moves the control-center status idle → sending. A request in
// flight or an already-resolved decision blocks a new one.
func (s *Session) BeginApproval() error {
	if s.phase != PhaseResult {
		return fmt.Errorf("%w: request approval in phase %s", ErrInvalidTransition, s.phase)
	}
	switch s.controlCenter {
	case ControlCenterSending:
		return ErrApprovalPending
	case ControlCenterApproved, ControlCenterNotApproved:
		return ErrApprovalFinal
	}
	s.controlCenter = ControlCenterSending
	return nil
}

// CompleteApproval applies the control-center decision. A failed call resolves
// to the not-approved terminal state rather than allowing a retry loop.
func (s *Session) CompleteApproval(gen uint64, decision *domain.ApprovalDecision, callErr error) (applied bool) {
	if gen != s.generation || s.controlCenter != ControlCenterSending {
		return false
	}

	if callErr != nil {
		s.controlCenter = ControlCenterNotApproved
		s.ccMessage = fmt.Sprintf("control center unreachable: %v", callErr)
		return true
	}

	if decision.Approved {
		s.controlCenter = ControlCenterApproved
	} else {
		s.controlCenter = ControlCenterNotApproved
	}
	s.ccMessage = decision.Message
	return true
}

// CanLaunch checks the launch guard without mutating anything.
func (s *Session) CanLaunch() error {
	if s.phase != PhaseResult {
		return fmt.Errorf("%w: launch in phase %s", ErrInvalidTransition, s.phase)
	}
	if s.launched {
		return ErrAlreadyLaunched
	}
	return nil
}

// MarkLaunched records a completed launch. The caller must have persisted the
// outcome first.
func (s *Session) MarkLaunched() {
	s.launched = true
}

// CanCancel checks the cancel-before-launch guard.
func (s *Session) CanCancel() error {
	if s.phase != PhaseResult {
		return fmt.Errorf("%w: cancel in phase %s", ErrInvalidTransition, s.phase)
	}
	if s.launched {
		return ErrAlreadyLaunched
	}
	return nil
}

// CanEndFlight checks the end-of-flight guard.
func (s *Session) CanEndFlight() error {
	if !s.launched {
		return ErrNotLaunched
	}
	return nil
}

// Launched reports whether the session's drone has been launched.
func (s *Session) Launched() bool {
	return s.launched
}

// CurrentPhase returns the current deployment phase.
func (s *Session) CurrentPhase() Phase {
	return s.phase
}

// ApprovalObserved maps the control-center status to the value persisted with
// a flight outcome: true/false once resolved, nil if never requested.
func (s *Session) ApprovalObserved() *bool {
	switch s.controlCenter {
	case ControlCenterApproved:
		b := true
		return &b
	case ControlCenterNotApproved:
		b := false
		return &b
	default:
		return nil
	}
}

// OutcomeRecord builds the flight-history record for the current session
// state. Valid only when a full configuration is present.
func (s *Session) OutcomeRecord(status domain.FlightStatus) (*domain.FlightRecord, error) {
	if s.selectedDrone == nil {
		return nil, ErrNoDroneSelected
	}
	if s.controller.Location == nil || s.drone.Location == nil {
		return nil, errors.New("session has no complete placement to persist")
	}

	area := make(geo.Polygon, len(s.drone.DrawnArea))
	copy(area, s.drone.DrawnArea)

	return &domain.FlightRecord{
		ID:                    uuid.New(),
		OperatorID:            s.OperatorID,
		DroneID:               s.selectedDrone.ID,
		DroneName:             s.selectedDrone.Name,
		DroneType:             s.selectedDrone.Type,
		ControllerAltitude:    s.controller.Altitude,
		ControllerLat:         s.controller.Location.Lat,
		ControllerLng:         s.controller.Location.Lng,
		DroneAltitude:         s.drone.Altitude,
		DroneLat:              s.drone.Location.Lat,
		DroneLng:              s.drone.Location.Lng,
		OperationalArea:       area,
		Status:                status,
		ControlCenterApproved: s.ApprovalObserved(),
		CreatedAt:             time.Now().UTC(),
	}, nil
}

// Reset wipes the whole session back to idle and advances the generation so
// in-flight completions become stale. The operator identity and own-location
// survive; everything else, including the calculation result and the
// control-center status, is cleared. Resetting an idle session is a no-op
// apart from the generation bump, so repeated resets converge.
func (s *Session) Reset() {
	s.generation++
	s.phase = PhaseIdle
	s.placement.Cancel()
	s.selectedDrone = nil
	s.controller = domain.ControllerConfig{}
	s.drone = domain.DroneConfig{}
	s.result = nil
	s.controlCenter = ControlCenterIdle
	s.ccMessage = ""
	s.launched = false
	s.quickRadius = defaultQuickRadiusMeters
	s.configFormOpen = false
	s.lastError = ""
}

func cloneCoordinate(c *geo.Coordinate) *geo.Coordinate {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

// Snapshot is a read-only copy of the session handed to the map adapter and
// overlay renderer. They never touch the live session.
type Snapshot struct {
	SessionID           uuid.UUID                 `json:"session_id"`
	OperatorID          uuid.UUID                 `json:"operator_id"`
	Phase               Phase                     `json:"phase"`
	PlacementMode       Mode                      `json:"placement_mode"`
	SelectedDrone       *domain.SelectedDrone     `json:"selected_drone"`
	Controller          domain.ControllerConfig   `json:"controller"`
	Drone               domain.DroneConfig        `json:"drone"`
	Result              *domain.CalculationResult `json:"calculation_result"`
	ControlCenter       ControlCenterStatus       `json:"control_center_status"`
	ControlCenterNote   string                    `json:"control_center_note,omitempty"`
	Launched            bool                      `json:"is_launched"`
	OperatorLocation    *geo.Coordinate           `json:"operator_location"`
	QuickRadius         float64                   `json:"quick_radius"`
	BottomSheetExpanded bool                      `json:"bottom_sheet_expanded"`
	ConfigFormOpen      bool                      `json:"config_form_open"`
	LastError           string                    `json:"last_error,omitempty"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:           s.ID,
		OperatorID:          s.OperatorID,
		Phase:               s.phase,
		PlacementMode:       s.placement.Mode(),
		Controller:          domain.ControllerConfig{Altitude: s.controller.Altitude, Location: cloneCoordinate(s.controller.Location)},
		Drone:               domain.DroneConfig{Altitude: s.drone.Altitude, Location: cloneCoordinate(s.drone.Location)},
		ControlCenter:       s.controlCenter,
		ControlCenterNote:   s.ccMessage,
		Launched:            s.launched,
		OperatorLocation:    cloneCoordinate(s.operatorLocation),
		QuickRadius:         s.quickRadius,
		BottomSheetExpanded: s.bottomSheetExpanded,
		ConfigFormOpen:      s.configFormOpen,
		LastError:           s.lastError,
	}
	if s.selectedDrone != nil {
		d := *s.selectedDrone
		snap.SelectedDrone = &d
	}
	if s.drone.DrawnArea != nil {
		area := make(geo.Polygon, len(s.drone.DrawnArea))
		copy(area, s.drone.DrawnArea)
		snap.Drone.DrawnArea = area
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}
