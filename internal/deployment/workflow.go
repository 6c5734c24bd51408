package deployment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
	"drone-deployment-planner/pkg/geo"
)

// Collaborators are the remote services the workflow coordinates with.
type Collaborators struct {
	Calculation ports.CalculationService
	Approval    ports.ApprovalService
	History     ports.OutcomePersister
}

// Timeouts bound the remote calls. Zero values fall back to defaults.
type Timeouts struct {
	Calculation time.Duration
	Approval    time.Duration
	Persist     time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Calculation <= 0 {
		t.Calculation = 15 * time.Second
	}
	if t.Approval <= 0 {
		t.Approval = 10 * time.Second
	}
	if t.Persist <= 0 {
		t.Persist = 10 * time.Second
	}
	return t
}

// Workflow owns one operator's session and serializes every mutation, the
// server-side equivalent of the client's single UI event loop. Remote
// calculation and approval calls run outside the lock and re-enter through
// completion methods carrying the generation captured at dispatch.
type Workflow struct {
	mu       sync.Mutex
	session  *Session
	col      Collaborators
	timeouts Timeouts
	log      zerolog.Logger

	onChange func(Snapshot, RenderPlan)
}

// NewWorkflow creates a workflow around a fresh session.
func NewWorkflow(operatorID uuid.UUID, col Collaborators, timeouts Timeouts, logger zerolog.Logger) *Workflow {
	return &Workflow{
		session:  NewSession(operatorID),
		col:      col,
		timeouts: timeouts.withDefaults(),
		log:      logger.With().Str("component", "workflow").Stringer("operator_id", operatorID).Logger(),
	}
}

// SetOnChange registers the listener notified after every applied state
// change, with the snapshot and the render plan derived from it. The listener
// is called outside the session lock.
func (w *Workflow) SetOnChange(fn func(Snapshot, RenderPlan)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// notifyLocked captures the snapshot under the lock; the listener runs after
// the caller releases it.
func (w *Workflow) notifyLocked() func() {
	if w.onChange == nil {
		return func() {}
	}
	snap := w.session.Snapshot()
	fn := w.onChange
	return func() { fn(snap, BuildRenderPlan(snap)) }
}

// OperatorID returns the owning operator.
func (w *Workflow) OperatorID() uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.OperatorID
}

// Snapshot returns a copy of the current session state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Snapshot()
}

func (w *Workflow) apply(fn func(*Session) error) error {
	w.mu.Lock()
	err := fn(w.session)
	notify := w.notifyLocked()
	w.mu.Unlock()

	if err == nil {
		notify()
	}
	return err
}

// SelectDrone starts configuring a deployment for the given drone.
func (w *Workflow) SelectDrone(d domain.SelectedDrone, template *domain.PinnedConfig) error {
	return w.apply(func(s *Session) error { return s.SelectDrone(d, template) })
}

// SetOperatorLocation records the operator's own position.
func (w *Workflow) SetOperatorLocation(c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return w.apply(func(s *Session) error {
		s.SetOperatorLocation(c)
		return nil
	})
}

// SetControllerAltitude updates the controller altitude.
func (w *Workflow) SetControllerAltitude(altitude float64) error {
	return w.apply(func(s *Session) error { return s.SetControllerAltitude(altitude) })
}

// SetDroneAltitude updates the drone altitude.
func (w *Workflow) SetDroneAltitude(altitude float64) error {
	return w.apply(func(s *Session) error { return s.SetDroneAltitude(altitude) })
}

// SetQuickRadius updates the single-click placement radius.
func (w *Workflow) SetQuickRadius(radiusMeters float64) error {
	return w.apply(func(s *Session) error { return s.SetQuickRadius(radiusMeters) })
}

// EnterPlacement arms the map for the next click or drawing.
func (w *Workflow) EnterPlacement(target Mode) error {
	return w.apply(func(s *Session) error { return s.EnterPlacement(target) })
}

// CancelPlacement disarms the map.
func (w *Workflow) CancelPlacement() error {
	return w.apply(func(s *Session) error {
		s.CancelPlacement()
		return nil
	})
}

// SetBottomSheetExpanded toggles the drone list sheet.
func (w *Workflow) SetBottomSheetExpanded(expanded bool) error {
	return w.apply(func(s *Session) error {
		s.SetBottomSheetExpanded(expanded)
		return nil
	})
}

// MapClick routes a resolved map click. Clicks with no active placement mode
// are plain panning and are dropped without an error or a notification.
func (w *Workflow) MapClick(c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	handled := w.session.ConsumeClick(c)
	var notify func()
	if handled {
		notify = w.notifyLocked()
	}
	w.mu.Unlock()

	if handled {
		notify()
	}
	return nil
}

// DrawEnd routes a completed drawing. Drawings arriving with no drawing mode
// active are dropped.
func (w *Workflow) DrawEnd(p geo.Polygon) error {
	w.mu.Lock()
	handled, err := w.session.ConsumeDrawEnd(p)
	var notify func()
	if handled && err == nil {
		notify = w.notifyLocked()
	}
	w.mu.Unlock()

	if err != nil {
		return err
	}
	if handled {
		notify()
	}
	return nil
}

// ClearDroneArea removes the drawn area and derived drone location.
func (w *Workflow) ClearDroneArea() error {
	return w.apply(func(s *Session) error {
		s.ClearDroneArea()
		return nil
	})
}

// Submit validates the configuration and starts the remote calculation. On
// validation failure the phase stays in configuring and the form stays open.
func (w *Workflow) Submit() error {
	w.mu.Lock()
	if err := w.session.BeginCalculation(); err != nil {
		notify := w.notifyLocked()
		w.mu.Unlock()
		notify()
		return err
	}

	gen := w.session.Generation()
	area := make(geo.Polygon, len(w.session.drone.DrawnArea))
	copy(area, w.session.drone.DrawnArea)
	req := ports.CalculationRequest{
		DroneID:            w.session.selectedDrone.ID,
		DroneName:          w.session.selectedDrone.Name,
		ControllerAltitude: w.session.controller.Altitude,
		ControllerLat:      w.session.controller.Location.Lat,
		ControllerLng:      w.session.controller.Location.Lng,
		DroneAltitude:      w.session.drone.Altitude,
		DroneLat:           w.session.drone.Location.Lat,
		DroneLng:           w.session.drone.Location.Lng,
		Area:               area,
	}
	notify := w.notifyLocked()
	w.mu.Unlock()
	notify()

	go w.runCalculation(gen, req)
	return nil
}

func (w *Workflow) runCalculation(gen uint64, req ports.CalculationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeouts.Calculation)
	defer cancel()

	result, err := w.col.Calculation.Calculate(ctx, req)
	if err != nil {
		w.log.Warn().Err(err).Msg("calculation call failed")
	}

	w.mu.Lock()
	applied := w.session.CompleteCalculation(gen, result, err)
	var notify func()
	if applied {
		notify = w.notifyLocked()
	}
	w.mu.Unlock()

	if !applied {
		w.log.Debug().Uint64("generation", gen).Msg("dropping stale calculation result")
		return
	}
	notify()
}

// RequestApproval asks the control center for a launch decision. Only one
// request may be in flight, and a resolved decision is final for the session.
func (w *Workflow) RequestApproval() error {
	w.mu.Lock()
	if err := w.session.BeginApproval(); err != nil {
		w.mu.Unlock()
		return err
	}
	gen := w.session.Generation()
	droneID := w.session.selectedDrone.ID
	droneName := w.session.selectedDrone.Name
	notify := w.notifyLocked()
	w.mu.Unlock()
	notify()

	go w.runApproval(gen, droneID, droneName)
	return nil
}

func (w *Workflow) runApproval(gen uint64, droneID uuid.UUID, droneName string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeouts.Approval)
	defer cancel()

	decision, err := w.col.Approval.RequestApproval(ctx, droneID, droneName)
	if err != nil {
		w.log.Warn().Err(err).Msg("approval call failed")
	}

	w.mu.Lock()
	applied := w.session.CompleteApproval(gen, decision, err)
	var notify func()
	if applied {
		notify = w.notifyLocked()
	}
	w.mu.Unlock()

	if !applied {
		w.log.Debug().Uint64("generation", gen).Msg("dropping stale approval decision")
		return
	}
	notify()
}

// Launch persists the launched outcome and marks the session as launched. The
// persist completes before the session state changes, and the lock is held
// throughout so a double-tap cannot race the record.
func (w *Workflow) Launch(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.session.CanLaunch(); err != nil {
		return err
	}
	if err := w.persistOutcomeLocked(ctx, domain.FlightStatusLaunched); err != nil {
		return err
	}
	w.session.MarkLaunched()

	notify := w.notifyLocked()
	go notify()
	return nil
}

// Cancel abandons an unlaunched deployment from the result phase: the
// not-launched outcome is persisted first, then the session is wiped.
func (w *Workflow) Cancel(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.session.CanCancel(); err != nil {
		return err
	}
	if err := w.persistOutcomeLocked(ctx, domain.FlightStatusNotLaunched); err != nil {
		return err
	}
	w.session.Reset()

	notify := w.notifyLocked()
	go notify()
	return nil
}

// EndFlight confirms the end of a launched flight and wipes the session. The
// history record was already persisted at launch.
func (w *Workflow) EndFlight() error {
	return w.apply(func(s *Session) error {
		if err := s.CanEndFlight(); err != nil {
			return err
		}
		s.Reset()
		return nil
	})
}

// Reset wipes the session unconditionally (logout, explicit reset, closing
// the configuration form). In-flight remote completions become stale.
func (w *Workflow) Reset() error {
	return w.apply(func(s *Session) error {
		s.Reset()
		return nil
	})
}

func (w *Workflow) persistOutcomeLocked(ctx context.Context, status domain.FlightStatus) error {
	record, err := w.session.OutcomeRecord(status)
	if err != nil {
		return err
	}

	overlay := ""
	if w.session.result != nil {
		overlay = w.session.result.ImageData
	}

	pctx, cancel := context.WithTimeout(ctx, w.timeouts.Persist)
	defer cancel()

	flightID, err := w.col.History.SaveOutcome(pctx, record, overlay)
	if err != nil {
		return fmt.Errorf("persisting flight outcome: %w", err)
	}

	w.log.Info().
		Stringer("flight_id", flightID).
		Str("status", string(status)).
		Msg("flight outcome persisted")
	return nil
}
