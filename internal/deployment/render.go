package deployment

import (
	"drone-deployment-planner/pkg/geo"
)

// Marker identifiers on the rendering surface.
const (
	MarkerController = "controller"
	MarkerDrone      = "drone"
	MarkerOperator   = "operator"
)

// Marker is a point rendered on the map.
type Marker struct {
	ID       string         `json:"id"`
	Position geo.Coordinate `json:"position"`
	Label    string         `json:"label,omitempty"`
}

// AreaLayer is the operational-area polygon styling. The fill is translucent
// while no calculation result exists and fully transparent once the overlay
// image is the sole visual; the stroke always remains for boundary legibility.
type AreaLayer struct {
	Polygon     geo.Polygon `json:"polygon"`
	FillColor   string      `json:"fill_color"`
	FillOpacity float64     `json:"fill_opacity"`
	LineColor   string      `json:"line_color"`
	LineWidth   float64     `json:"line_width"`
	LineOpacity float64     `json:"line_opacity"`
}

// ImageOverlay anchors a computed zone image to the four corners of the
// operational area's bounding box, in NW, NE, SE, SW order.
type ImageOverlay struct {
	ID        string            `json:"id"`
	ImageData string            `json:"image_data"`
	Corners   [4]geo.Coordinate `json:"corners"`
	Opacity   float64           `json:"opacity"`
}

// RenderPlan is the full set of instructions for the map surface derived from
// one session snapshot. Absent layers mean "remove if present": each plan
// replaces the previous one wholesale, so stale overlays cannot linger.
type RenderPlan struct {
	Markers []Marker      `json:"markers"`
	Area    *AreaLayer    `json:"area"`
	Overlay *ImageOverlay `json:"overlay"`
}

const (
	areaColor      = "#a855f7"
	overlayOpacity = 0.8
)

// BuildRenderPlan derives the map rendering for a session snapshot.
func BuildRenderPlan(s Snapshot) RenderPlan {
	var plan RenderPlan

	if s.OperatorLocation != nil {
		plan.Markers = append(plan.Markers, Marker{ID: MarkerOperator, Position: *s.OperatorLocation})
	}
	if s.Controller.Location != nil {
		plan.Markers = append(plan.Markers, Marker{ID: MarkerController, Position: *s.Controller.Location})
	}
	if s.Drone.Location != nil {
		label := ""
		if s.SelectedDrone != nil {
			label = s.SelectedDrone.Name
		}
		plan.Markers = append(plan.Markers, Marker{ID: MarkerDrone, Position: *s.Drone.Location, Label: label})
	}

	if len(s.Drone.DrawnArea) > 0 {
		area := &AreaLayer{
			Polygon:     s.Drone.DrawnArea,
			FillColor:   areaColor,
			FillOpacity: 0.15,
			LineColor:   areaColor,
			LineWidth:   2,
			LineOpacity: 0.8,
		}
		if s.Result != nil {
			area.FillOpacity = 0
		}
		plan.Area = area
	}

	if s.Result != nil && len(s.Drone.DrawnArea) >= 3 {
		b := geo.Bounds(s.Drone.DrawnArea)
		plan.Overlay = &ImageOverlay{
			ID:        "zone-" + s.SessionID.String(),
			ImageData: s.Result.ImageData,
			Corners: [4]geo.Coordinate{
				{Lat: b.North, Lng: b.West},
				{Lat: b.North, Lng: b.East},
				{Lat: b.South, Lng: b.East},
				{Lat: b.South, Lng: b.West},
			},
			Opacity: overlayOpacity,
		}
	}

	return plan
}
