package deployment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/internal/ports"
	"drone-deployment-planner/pkg/geo"
)

var (
	testDrone    = domain.SelectedDrone{ID: uuid.New(), Name: "Alpha-1", Type: "patrol", BatteryLevel: 78}
	testTriangle = geo.Polygon{
		{Lat: 32.08, Lng: 34.78},
		{Lat: 32.09, Lng: 34.79},
		{Lat: 32.07, Lng: 34.80},
	}
)

func configuredSession(t *testing.T) *Session {
	t.Helper()

	s := NewSession(uuid.New())
	require.NoError(t, s.SelectDrone(testDrone, nil))
	require.NoError(t, s.SetControllerAltitude(1.5))
	require.NoError(t, s.SetDroneAltitude(120))
	require.NoError(t, s.EnterPlacement(ModeController))
	require.True(t, s.ConsumeClick(geo.Coordinate{Lat: 32.08, Lng: 34.78}))
	require.NoError(t, s.EnterPlacement(ModeDrawing))
	handled, err := s.ConsumeDrawEnd(testTriangle)
	require.True(t, handled)
	require.NoError(t, err)
	return s
}

func TestSelectDroneOpensConfiguration(t *testing.T) {
	s := NewSession(uuid.New())
	s.SetBottomSheetExpanded(true)

	require.NoError(t, s.SelectDrone(testDrone, nil))

	snap := s.Snapshot()
	assert.Equal(t, PhaseConfiguring, snap.Phase)
	assert.True(t, snap.ConfigFormOpen)
	assert.False(t, snap.BottomSheetExpanded)
	require.NotNil(t, snap.SelectedDrone)
	assert.Equal(t, "Alpha-1", snap.SelectedDrone.Name)

	// Selecting again without a reset is not a valid transition.
	assert.ErrorIs(t, s.SelectDrone(testDrone, nil), ErrInvalidTransition)
}

func TestSelectDroneWithTemplateDerivesLocation(t *testing.T) {
	s := NewSession(uuid.New())
	tmpl := &domain.PinnedConfig{
		ControllerAltitude: 2,
		ControllerLocation: &geo.Coordinate{Lat: 32.05, Lng: 34.75},
		DroneAltitude:      100,
		DroneArea:          testTriangle,
	}
	require.NoError(t, s.SelectDrone(testDrone, tmpl))

	snap := s.Snapshot()
	require.NotNil(t, snap.Drone.Location)
	assert.Equal(t, geo.Centroid(testTriangle), *snap.Drone.Location)
	assert.Len(t, snap.Drone.DrawnArea, 3)
}

func TestDrawEndDerivesDroneLocation(t *testing.T) {
	s := NewSession(uuid.New())
	require.NoError(t, s.SelectDrone(testDrone, nil))
	require.NoError(t, s.EnterPlacement(ModeDrawing))

	handled, err := s.ConsumeDrawEnd(testTriangle)
	require.True(t, handled)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.Drone.Location)
	// Derived in the same update, exactly the vertex centroid.
	assert.Equal(t, geo.Centroid(testTriangle), *snap.Drone.Location)
	assert.Equal(t, ModeNone, snap.PlacementMode)

	s.ClearDroneArea()
	snap = s.Snapshot()
	assert.Nil(t, snap.Drone.Location)
	assert.Nil(t, snap.Drone.DrawnArea)
}

func TestDrawEndRejectsDegeneratePolygon(t *testing.T) {
	s := NewSession(uuid.New())
	require.NoError(t, s.SelectDrone(testDrone, nil))
	require.NoError(t, s.EnterPlacement(ModeDrawing))

	handled, err := s.ConsumeDrawEnd(geo.Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})
	assert.True(t, handled)
	assert.Error(t, err)
	assert.Nil(t, s.Snapshot().Drone.DrawnArea)
}

func TestQuickRadiusClickPlacesArea(t *testing.T) {
	s := NewSession(uuid.New())
	require.NoError(t, s.SelectDrone(testDrone, nil))
	require.NoError(t, s.SetQuickRadius(300))
	require.NoError(t, s.EnterPlacement(ModeDrone))

	center := geo.Coordinate{Lat: 32.08, Lng: 34.78}
	require.True(t, s.ConsumeClick(center))

	snap := s.Snapshot()
	require.Len(t, snap.Drone.DrawnArea, 65)
	require.NotNil(t, snap.Drone.Location)
	assert.InDelta(t, center.Lat, snap.Drone.Location.Lat, 1e-6)
	assert.InDelta(t, center.Lng, snap.Drone.Location.Lng, 1e-6)
}

func TestSubmissionBlockedWithSmallArea(t *testing.T) {
	s := configuredSession(t)
	s.drone.DrawnArea = s.drone.DrawnArea[:2]

	err := s.BeginCalculation()
	assert.Error(t, err)
	assert.Equal(t, PhaseConfiguring, s.CurrentPhase())
	assert.True(t, s.Snapshot().ConfigFormOpen)
}

func TestSubmissionBlockedWithZeroAltitude(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.SetControllerAltitude(0))

	err := s.BeginCalculation()
	assert.Error(t, err)
	assert.Equal(t, PhaseConfiguring, s.CurrentPhase())
}

func TestSubmissionBlockedWithoutControllerLocation(t *testing.T) {
	s := NewSession(uuid.New())
	require.NoError(t, s.SelectDrone(testDrone, nil))
	require.NoError(t, s.SetControllerAltitude(1.5))
	require.NoError(t, s.SetDroneAltitude(120))
	require.NoError(t, s.EnterPlacement(ModeDrawing))
	_, err := s.ConsumeDrawEnd(testTriangle)
	require.NoError(t, err)

	assert.Error(t, s.BeginCalculation())
	assert.Equal(t, PhaseConfiguring, s.CurrentPhase())
}

func TestCalculationLifecycle(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())
	assert.Equal(t, PhaseCalculating, s.CurrentPhase())
	assert.False(t, s.Snapshot().ConfigFormOpen)

	result := &domain.CalculationResult{ImageData: "data:image/svg+xml;base64,Zm9v", CalculatedAt: time.Now()}
	assert.True(t, s.CompleteCalculation(s.Generation(), result, nil))
	assert.Equal(t, PhaseResult, s.CurrentPhase())
	require.NotNil(t, s.Snapshot().Result)
	assert.Equal(t, result.ImageData, s.Snapshot().Result.ImageData)
}

func TestCalculationFailureReopensForm(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())

	assert.True(t, s.CompleteCalculation(s.Generation(), nil, context.DeadlineExceeded))
	snap := s.Snapshot()
	assert.Equal(t, PhaseConfiguring, snap.Phase)
	assert.True(t, snap.ConfigFormOpen)
	assert.Contains(t, snap.LastError, "calculation failed")
	assert.Nil(t, snap.Result)
}

func TestStaleCalculationDropped(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())
	gen := s.Generation()

	s.Reset()

	result := &domain.CalculationResult{ImageData: "data:stale", CalculatedAt: time.Now()}
	assert.False(t, s.CompleteCalculation(gen, result, nil))
	snap := s.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)
}

func TestApprovalGuards(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())
	require.True(t, s.CompleteCalculation(s.Generation(), &domain.CalculationResult{ImageData: "data:x"}, nil))

	require.NoError(t, s.BeginApproval())
	// Idempotent only while pending: no second request in flight.
	assert.ErrorIs(t, s.BeginApproval(), ErrApprovalPending)

	decision := &domain.ApprovalDecision{Approved: true, Message: "Control center has approved the launch"}
	assert.True(t, s.CompleteApproval(s.Generation(), decision, nil))
	assert.Equal(t, ControlCenterApproved, s.Snapshot().ControlCenter)

	// A resolved decision is terminal for the session.
	assert.ErrorIs(t, s.BeginApproval(), ErrApprovalFinal)
}

func TestApprovalFailureIsTerminal(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())
	require.True(t, s.CompleteCalculation(s.Generation(), &domain.CalculationResult{ImageData: "data:x"}, nil))
	require.NoError(t, s.BeginApproval())

	assert.True(t, s.CompleteApproval(s.Generation(), nil, context.DeadlineExceeded))
	assert.Equal(t, ControlCenterNotApproved, s.Snapshot().ControlCenter)
	assert.ErrorIs(t, s.BeginApproval(), ErrApprovalFinal)
}

func TestStaleApprovalDropped(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())
	require.True(t, s.CompleteCalculation(s.Generation(), &domain.CalculationResult{ImageData: "data:x"}, nil))
	require.NoError(t, s.BeginApproval())
	gen := s.Generation()

	s.Reset()

	assert.False(t, s.CompleteApproval(gen, &domain.ApprovalDecision{Approved: true}, nil))
	assert.Equal(t, ControlCenterIdle, s.Snapshot().ControlCenter)
}

func TestApprovalObserved(t *testing.T) {
	s := configuredSession(t)
	assert.Nil(t, s.ApprovalObserved())

	require.NoError(t, s.BeginCalculation())
	require.True(t, s.CompleteCalculation(s.Generation(), &domain.CalculationResult{ImageData: "data:x"}, nil))
	require.NoError(t, s.BeginApproval())
	require.True(t, s.CompleteApproval(s.Generation(), &domain.ApprovalDecision{Approved: false}, nil))

	observed := s.ApprovalObserved()
	require.NotNil(t, observed)
	assert.False(t, *observed)
}

func TestResetIsIdempotent(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())

	s.Reset()
	once := s.Snapshot()
	s.Reset()
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
	assert.Equal(t, PhaseIdle, twice.Phase)
	assert.Nil(t, twice.SelectedDrone)
	assert.Nil(t, twice.Result)
	assert.Equal(t, ControlCenterIdle, twice.ControlCenter)
	assert.False(t, twice.Launched)
}

func TestOutcomeRecord(t *testing.T) {
	s := configuredSession(t)
	require.NoError(t, s.BeginCalculation())
	require.True(t, s.CompleteCalculation(s.Generation(), &domain.CalculationResult{ImageData: "data:x"}, nil))

	rec, err := s.OutcomeRecord(domain.FlightStatusNotLaunched)
	require.NoError(t, err)
	assert.Equal(t, testDrone.ID, rec.DroneID)
	assert.Equal(t, "Alpha-1", rec.DroneName)
	assert.Equal(t, domain.FlightStatusNotLaunched, rec.Status)
	assert.Equal(t, 1.5, rec.ControllerAltitude)
	assert.Equal(t, 32.08, rec.ControllerLat)
	assert.Len(t, rec.OperationalArea, 3)
	assert.Nil(t, rec.ControlCenterApproved)
}

// --- workflow-level tests with fake collaborators ---

type fakeCalculation struct {
	mu     sync.Mutex
	calls  int
	last   ports.CalculationRequest
	result *domain.CalculationResult
	err    error
}

func (f *fakeCalculation) Calculate(_ context.Context, req ports.CalculationRequest) (*domain.CalculationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.result, f.err
}

func (f *fakeCalculation) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeApproval struct {
	mu       sync.Mutex
	calls    int
	decision *domain.ApprovalDecision
	err      error
}

func (f *fakeApproval) RequestApproval(_ context.Context, _ uuid.UUID, _ string) (*domain.ApprovalDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.decision, f.err
}

type fakeHistory struct {
	mu       sync.Mutex
	records  []*domain.FlightRecord
	overlays []string
	err      error
}

func (f *fakeHistory) SaveOutcome(_ context.Context, record *domain.FlightRecord, overlay string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.records = append(f.records, record)
	f.overlays = append(f.overlays, overlay)
	return record.ID, nil
}

func newTestWorkflow(calc *fakeCalculation, appr *fakeApproval, hist *fakeHistory) *Workflow {
	return NewWorkflow(uuid.New(), Collaborators{
		Calculation: calc,
		Approval:    appr,
		History:     hist,
	}, Timeouts{}, zerolog.Nop())
}

func waitForPhase(t *testing.T, w *Workflow, phase Phase) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := w.Snapshot()
		if snap.Phase == phase {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s, at %s", phase, w.Snapshot().Phase)
	return Snapshot{}
}

func configureWorkflow(t *testing.T, w *Workflow) {
	t.Helper()
	require.NoError(t, w.SelectDrone(testDrone, nil))
	require.NoError(t, w.SetControllerAltitude(1.5))
	require.NoError(t, w.SetDroneAltitude(120))
	require.NoError(t, w.EnterPlacement(ModeController))
	require.NoError(t, w.MapClick(geo.Coordinate{Lat: 32.08, Lng: 34.78}))
	require.NoError(t, w.EnterPlacement(ModeDrawing))
	require.NoError(t, w.DrawEnd(testTriangle))
}

func TestWorkflowHappyPath(t *testing.T) {
	calculatedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calc := &fakeCalculation{result: &domain.CalculationResult{
		ImageData:    "data:image/svg+xml;base64,Zm9v",
		CalculatedAt: calculatedAt,
	}}
	w := newTestWorkflow(calc, &fakeApproval{}, &fakeHistory{})

	configureWorkflow(t, w)
	require.NoError(t, w.Submit())

	snap := waitForPhase(t, w, PhaseResult)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "data:image/svg+xml;base64,Zm9v", snap.Result.ImageData)
	assert.Equal(t, calculatedAt, snap.Result.CalculatedAt)
	assert.Equal(t, 1, calc.callCount())
	assert.Equal(t, "Alpha-1", calc.last.DroneName)
	assert.Len(t, calc.last.Area, 3)
}

func TestWorkflowInvalidSubmitIssuesNoRemoteCall(t *testing.T) {
	calc := &fakeCalculation{}
	w := newTestWorkflow(calc, &fakeApproval{}, &fakeHistory{})

	require.NoError(t, w.SelectDrone(testDrone, nil))
	require.NoError(t, w.SetControllerAltitude(0))
	require.NoError(t, w.SetDroneAltitude(120))
	require.NoError(t, w.EnterPlacement(ModeController))
	require.NoError(t, w.MapClick(geo.Coordinate{Lat: 32.08, Lng: 34.78}))
	require.NoError(t, w.EnterPlacement(ModeDrawing))
	require.NoError(t, w.DrawEnd(testTriangle))

	err := w.Submit()
	assert.Error(t, err)
	assert.Equal(t, PhaseConfiguring, w.Snapshot().Phase)
	assert.Equal(t, 0, calc.callCount())
}

func TestWorkflowCancelPersistsNotLaunched(t *testing.T) {
	calc := &fakeCalculation{result: &domain.CalculationResult{ImageData: "data:x"}}
	hist := &fakeHistory{}
	w := newTestWorkflow(calc, &fakeApproval{}, hist)

	configureWorkflow(t, w)
	require.NoError(t, w.Submit())
	waitForPhase(t, w, PhaseResult)

	require.NoError(t, w.Cancel(context.Background()))

	snap := w.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)

	require.Len(t, hist.records, 1)
	assert.Equal(t, domain.FlightStatusNotLaunched, hist.records[0].Status)
	assert.Equal(t, "data:x", hist.overlays[0])

	// Session already wiped: a second cancel has nothing to persist.
	assert.Error(t, w.Cancel(context.Background()))
	assert.Len(t, hist.records, 1)
}

func TestWorkflowLaunchThenEndFlight(t *testing.T) {
	calc := &fakeCalculation{result: &domain.CalculationResult{ImageData: "data:x"}}
	appr := &fakeApproval{decision: &domain.ApprovalDecision{Approved: true, Message: "approved"}}
	hist := &fakeHistory{}
	w := newTestWorkflow(calc, appr, hist)

	configureWorkflow(t, w)
	require.NoError(t, w.Submit())
	waitForPhase(t, w, PhaseResult)

	require.NoError(t, w.RequestApproval())
	deadline := time.Now().Add(2 * time.Second)
	for w.Snapshot().ControlCenter != ControlCenterApproved && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, ControlCenterApproved, w.Snapshot().ControlCenter)

	require.NoError(t, w.Launch(context.Background()))
	snap := w.Snapshot()
	assert.True(t, snap.Launched)
	assert.Equal(t, PhaseResult, snap.Phase)

	require.Len(t, hist.records, 1)
	assert.Equal(t, domain.FlightStatusLaunched, hist.records[0].Status)
	require.NotNil(t, hist.records[0].ControlCenterApproved)
	assert.True(t, *hist.records[0].ControlCenterApproved)

	// Double-tap: the second launch is rejected, no duplicate record.
	assert.ErrorIs(t, w.Launch(context.Background()), ErrAlreadyLaunched)
	assert.Len(t, hist.records, 1)

	// Cancel is not available after launch; end-flight wipes without persisting.
	assert.ErrorIs(t, w.Cancel(context.Background()), ErrAlreadyLaunched)
	require.NoError(t, w.EndFlight())
	assert.Equal(t, PhaseIdle, w.Snapshot().Phase)
	assert.Len(t, hist.records, 1)
}

func TestWorkflowPersistFailureKeepsSession(t *testing.T) {
	calc := &fakeCalculation{result: &domain.CalculationResult{ImageData: "data:x"}}
	hist := &fakeHistory{err: context.DeadlineExceeded}
	w := newTestWorkflow(calc, &fakeApproval{}, hist)

	configureWorkflow(t, w)
	require.NoError(t, w.Submit())
	waitForPhase(t, w, PhaseResult)

	assert.Error(t, w.Cancel(context.Background()))
	// The session is not wiped when the outcome could not be recorded.
	assert.Equal(t, PhaseResult, w.Snapshot().Phase)
}

func TestWorkflowIgnoresUnarmedMapEvents(t *testing.T) {
	w := newTestWorkflow(&fakeCalculation{}, &fakeApproval{}, &fakeHistory{})
	require.NoError(t, w.SelectDrone(testDrone, nil))

	require.NoError(t, w.MapClick(geo.Coordinate{Lat: 32.08, Lng: 34.78}))
	require.NoError(t, w.DrawEnd(testTriangle))

	snap := w.Snapshot()
	assert.Nil(t, snap.Controller.Location)
	assert.Nil(t, snap.Drone.DrawnArea)
}

func TestWorkflowRejectsOutOfRangeClick(t *testing.T) {
	w := newTestWorkflow(&fakeCalculation{}, &fakeApproval{}, &fakeHistory{})
	require.NoError(t, w.SelectDrone(testDrone, nil))
	require.NoError(t, w.EnterPlacement(ModeController))

	assert.Error(t, w.MapClick(geo.Coordinate{Lat: 95, Lng: 34.78}))
}
