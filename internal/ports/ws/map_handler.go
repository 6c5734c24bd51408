// Package ws is the map interaction adapter: one websocket per logged-in map
// client, carrying operator gestures in and state snapshots with render plans
// out.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/application"
	"drone-deployment-planner/internal/deployment"
	"drone-deployment-planner/internal/domain"
	"drone-deployment-planner/pkg/geo"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is checked by the reverse proxy in production
	},
}

// MapHandler routes websocket messages between map clients and their
// deployment workflows.
type MapHandler struct {
	manager      *deployment.Manager
	authService  *application.AuthService
	droneService *application.DroneService

	connections   map[uuid.UUID]*websocket.Conn
	connectionsMu sync.Mutex

	log zerolog.Logger
}

// NewMapHandler creates a MapHandler.
func NewMapHandler(
	manager *deployment.Manager,
	authService *application.AuthService,
	droneService *application.DroneService,
	logger zerolog.Logger,
) *MapHandler {
	return &MapHandler{
		manager:      manager,
		authService:  authService,
		droneService: droneService,
		connections:  make(map[uuid.UUID]*websocket.Conn),
		log:          logger.With().Str("component", "map_handler").Logger(),
	}
}

// clientMessage is the inbound envelope. Fields beyond Type are read only by
// the message types that use them.
type clientMessage struct {
	Type string `json:"type"`

	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	Polygon []geo.Coordinate `json:"polygon"`

	Target string `json:"target"`

	DroneID  string  `json:"drone_id"`
	Altitude float64 `json:"altitude"`
	Radius   float64 `json:"radius"`
	Expanded bool    `json:"expanded"`
}

type stateMessage struct {
	Type       string                `json:"type"`
	State      deployment.Snapshot   `json:"state"`
	RenderPlan deployment.RenderPlan `json:"render_plan"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Request string `json:"request"`
	Message string `json:"message"`
}

// HandleConnection authenticates the request, upgrades it and binds the
// connection to the operator's workflow.
func (h *MapHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	operator, err := h.authService.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.connectionsMu.Lock()
	if prev, ok := h.connections[operator.ID]; ok {
		// One map client per operator; a reconnect displaces the old one.
		prev.Close()
	}
	h.connections[operator.ID] = conn
	h.connectionsMu.Unlock()

	workflow := h.manager.GetOrCreate(operator.ID)
	workflow.SetOnChange(func(snap deployment.Snapshot, plan deployment.RenderPlan) {
		h.sendState(operator.ID, snap, plan)
	})

	// Initial state so a reconnecting client resumes where it left off.
	snap := workflow.Snapshot()
	h.sendState(operator.ID, snap, deployment.BuildRenderPlan(snap))

	h.log.Info().Stringer("operator_id", operator.ID).Msg("map client connected")
	go h.readLoop(operator.ID, workflow, conn)
}

func (h *MapHandler) readLoop(operatorID uuid.UUID, workflow *deployment.Workflow, conn *websocket.Conn) {
	defer func() {
		conn.Close()

		h.connectionsMu.Lock()
		if h.connections[operatorID] == conn {
			delete(h.connections, operatorID)
		}
		h.connectionsMu.Unlock()

		h.log.Info().Stringer("operator_id", operatorID).Msg("map client disconnected")
	}()

	conn.SetPingHandler(func(string) error {
		return conn.WriteControl(websocket.PongMessage, []byte{}, time.Now().Add(time.Second))
	})

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.sendError(operatorID, "", "malformed message")
			continue
		}

		if err := h.dispatch(workflow, msg); err != nil {
			h.sendError(operatorID, msg.Type, err.Error())
		}
	}
}

// dispatch routes one client message to the workflow. Every branch either
// mutates the session (the workflow pushes the new state itself) or fails
// with an error that goes back to this client only.
func (h *MapHandler) dispatch(workflow *deployment.Workflow, msg clientMessage) error {
	switch msg.Type {
	case "map_click":
		return workflow.MapClick(geo.Coordinate{Lat: msg.Lat, Lng: msg.Lng})

	case "draw_end":
		return workflow.DrawEnd(geo.Polygon(msg.Polygon))

	case "enter_placement":
		mode, err := deployment.ParseMode(msg.Target)
		if err != nil {
			return err
		}
		return workflow.EnterPlacement(mode)

	case "cancel_placement":
		return workflow.CancelPlacement()

	case "select_drone":
		return h.selectDrone(workflow, msg.DroneID)

	case "set_operator_location":
		return workflow.SetOperatorLocation(geo.Coordinate{Lat: msg.Lat, Lng: msg.Lng})

	case "set_controller_altitude":
		return workflow.SetControllerAltitude(msg.Altitude)

	case "set_drone_altitude":
		return workflow.SetDroneAltitude(msg.Altitude)

	case "set_quick_radius":
		return workflow.SetQuickRadius(msg.Radius)

	case "set_bottom_sheet":
		return workflow.SetBottomSheetExpanded(msg.Expanded)

	case "clear_area":
		return workflow.ClearDroneArea()

	case "submit":
		return workflow.Submit()

	case "request_approval":
		return workflow.RequestApproval()

	case "launch":
		return workflow.Launch(context.Background())

	case "cancel":
		return workflow.Cancel(context.Background())

	case "end_flight":
		return workflow.EndFlight()

	case "reset":
		return workflow.Reset()

	default:
		h.log.Debug().Str("type", msg.Type).Msg("unknown message type")
		return nil
	}
}

// selectDrone resolves the drone and the operator's saved template, then
// starts configuration.
func (h *MapHandler) selectDrone(workflow *deployment.Workflow, rawID string) error {
	droneID, err := uuid.Parse(rawID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	drone, err := h.droneService.GetDrone(ctx, droneID)
	if err != nil {
		return err
	}

	var template *domain.PinnedConfig
	pinned, err := h.droneService.PinnedDrones(ctx, workflow.OperatorID())
	if err == nil {
		for _, p := range pinned {
			if p.DroneID == droneID && p.Config != nil {
				template = p.Config
				break
			}
		}
	}

	return workflow.SelectDrone(domain.SelectedDrone{
		ID:           drone.ID,
		Name:         drone.Name,
		Type:         drone.Type,
		BatteryLevel: drone.BatteryLevel,
	}, template)
}

func (h *MapHandler) sendState(operatorID uuid.UUID, snap deployment.Snapshot, plan deployment.RenderPlan) {
	h.send(operatorID, stateMessage{
		Type:       "state",
		State:      snap,
		RenderPlan: plan,
	})
}

func (h *MapHandler) sendError(operatorID uuid.UUID, request, message string) {
	h.send(operatorID, errorMessage{
		Type:    "error",
		Request: request,
		Message: message,
	})
}

func (h *MapHandler) send(operatorID uuid.UUID, message interface{}) {
	h.connectionsMu.Lock()
	defer h.connectionsMu.Unlock()

	conn, exists := h.connections[operatorID]
	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error().Err(err).Msg("error marshaling outbound message")
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Warn().Err(err).Msg("error sending message to map client")
	}
}
