package deployment

import (
	"errors"
	"fmt"
)

// Mode is the interpretation assigned to the next map interaction. Exactly one
// mode is active at a time; consuming an interaction always returns to ModeNone.
type Mode int

const (
	// ModeNone means map interactions are plain panning and must be ignored.
	ModeNone Mode = iota
	// ModeController attributes the next map click to the controller location.
	ModeController
	// ModeDrone attributes the next map click to the legacy single-click drone
	// placement (quick-radius variant).
	ModeDrone
	// ModeDrawing attributes the next completed drawing to the operational area.
	ModeDrawing
)

var ErrNoPlacementTarget = errors.New("placement target must be controller, drone or drawing")

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeController:
		return "controller"
	case ModeDrone:
		return "drone"
	case ModeDrawing:
		return "drawing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText renders the mode for state snapshots.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode converts a wire value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return ModeNone, nil
	case "controller":
		return ModeController, nil
	case "drone":
		return ModeDrone, nil
	case "drawing":
		return ModeDrawing, nil
	default:
		return ModeNone, fmt.Errorf("unknown placement mode %q", s)
	}
}

// Placement is the single-active-mode selector gating what map clicks and
// drawings mean. It is owned by the session and mutated only on the session's
// event path.
type Placement struct {
	mode Mode
}

// Mode returns the active mode.
func (p *Placement) Mode() Mode {
	return p.mode
}

// Enter activates a placement target, implicitly cancelling any prior
// unfinished placement. Entering ModeNone is rejected; use Cancel.
func (p *Placement) Enter(target Mode) error {
	switch target {
	case ModeController, ModeDrone, ModeDrawing:
		p.mode = target
		return nil
	case ModeNone:
		return ErrNoPlacementTarget
	default:
		return ErrNoPlacementTarget
	}
}

// Cancel returns to ModeNone, e.g. when the configuration form closes.
func (p *Placement) Cancel() {
	p.mode = ModeNone
}

// ConsumeClick attributes a map click to the active mode and resets to
// ModeNone. The second return is false when the click must be ignored: no mode
// is active, or a drawing is in progress (the drawing tool owns those clicks).
func (p *Placement) ConsumeClick() (Mode, bool) {
	switch p.mode {
	case ModeController, ModeDrone:
		mode := p.mode
		p.mode = ModeNone
		return mode, true
	case ModeNone, ModeDrawing:
		return ModeNone, false
	default:
		return ModeNone, false
	}
}

// ConsumeDrawEnd accepts a completed drawing and resets to ModeNone. It
// returns false when no drawing was active and the geometry must be ignored.
func (p *Placement) ConsumeDrawEnd() bool {
	switch p.mode {
	case ModeDrawing:
		p.mode = ModeNone
		return true
	case ModeNone, ModeController, ModeDrone:
		return false
	default:
		return false
	}
}
