package domain

import (
	"time"

	"github.com/google/uuid"

	"drone-deployment-planner/pkg/geo"
)

type DroneStatus string
type FlightStatus string

const (
	DroneStatusAvailable   DroneStatus = "available"
	DroneStatusInUse       DroneStatus = "in_use"
	DroneStatusMaintenance DroneStatus = "maintenance"

	FlightStatusLaunched    FlightStatus = "Launched"
	FlightStatusNotLaunched FlightStatus = "Not Launched"
)

// Operator is a ground operator identified by a hardware serial number.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	SerialNumber string    `json:"serial_number"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Drone is an entry in the drone directory.
type Drone struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Status       DroneStatus `json:"status"`
	BatteryLevel int         `json:"battery_level"`
	CreatedAt    time.Time   `json:"created_at"`
}

// SelectedDrone is the subset of drone fields carried in a deployment session.
type SelectedDrone struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	BatteryLevel int       `json:"battery_level"`
}

// ControllerConfig holds the ground controller placement. Location is nil until
// the operator places it.
type ControllerConfig struct {
	Altitude float64         `json:"altitude"`
	Location *geo.Coordinate `json:"location"`
}

// DroneConfig holds the drone placement. Location is derived from the drawn
// operational area: whenever DrawnArea is set, Location is its centroid, and
// clearing the area clears the location with it.
type DroneConfig struct {
	Altitude  float64         `json:"altitude"`
	Location  *geo.Coordinate `json:"location"`
	DrawnArea geo.Polygon     `json:"drawn_area"`
}

// CalculationResult is the server-computed communication/visibility zone.
// ImageData is a data-URI encoded image anchored over the operational area.
type CalculationResult struct {
	ImageData    string    `json:"image_data"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// ApprovalDecision is the control center's answer to a launch request.
type ApprovalDecision struct {
	Approved    bool      `json:"approved"`
	Message     string    `json:"message"`
	RespondedAt time.Time `json:"responded_at"`
}

// PinnedDrone is a drone bookmarked by an operator, optionally with a saved
// configuration template.
type PinnedDrone struct {
	ID         uuid.UUID     `json:"id"`
	DroneID    uuid.UUID     `json:"drone_id"`
	DroneName  string        `json:"drone_name"`
	OperatorID uuid.UUID     `json:"operator_id"`
	Config     *PinnedConfig `json:"config"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PinnedConfig is the optional configuration template stored with a pinned drone.
type PinnedConfig struct {
	ControllerAltitude float64         `json:"controller_altitude"`
	ControllerLocation *geo.Coordinate `json:"controller_location"`
	DroneAltitude      float64         `json:"drone_altitude"`
	DroneArea          geo.Polygon     `json:"drone_area"`
}

// RecentlyUsedDrone records a drone an operator recently deployed.
type RecentlyUsedDrone struct {
	ID        uuid.UUID `json:"id"`
	DroneID   uuid.UUID `json:"drone_id"`
	DroneName string    `json:"drone_name"`
	UsedAt    time.Time `json:"used_at"`
}

// FlightRecord is the append-only outcome of a deployment session.
// ControlCenterApproved is nil when approval was never requested.
type FlightRecord struct {
	ID                    uuid.UUID    `json:"id"`
	OperatorID            uuid.UUID    `json:"operator_id"`
	DroneID               uuid.UUID    `json:"drone_id"`
	DroneName             string       `json:"drone_name"`
	DroneType             string       `json:"drone_type"`
	ControllerAltitude    float64      `json:"controller_altitude"`
	ControllerLat         float64      `json:"controller_lat"`
	ControllerLng         float64      `json:"controller_lng"`
	DroneAltitude         float64      `json:"drone_altitude"`
	DroneLat              float64      `json:"drone_lat"`
	DroneLng              float64      `json:"drone_lng"`
	OperationalArea       geo.Polygon  `json:"operational_area"`
	Status                FlightStatus `json:"status"`
	ControlCenterApproved *bool        `json:"control_center_approved"`
	OverlayObjectKey      string       `json:"overlay_object_key,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
}
