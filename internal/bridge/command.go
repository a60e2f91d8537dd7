// Package bridge streams frame output to browser renderers over WebSocket
// and turns their JSON commands into simulation inputs.
package bridge

import (
	"errors"
	"fmt"

	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/sim"
)

// ErrUnknownCommand is returned for unrecognized command types.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one inbound client message.
type Command struct {
	Type     string  `json:"type"`
	Body     string  `json:"body,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Key      string  `json:"key,omitempty"`
	Value    float64 `json:"value,omitempty"`
	DAzimuth float64 `json:"dAzimuth,omitempty"`
	DPolar   float64 `json:"dPolar,omitempty"`
	Tween    bool    `json:"tween,omitempty"`
	On       bool    `json:"on,omitempty"`
}

// Input converts c to a simulation input.
func (c Command) Input() (sim.Input, error) {
	switch c.Type {
	case "focus":
		if c.Body == "" {
			return nil, errors.New("focus: missing body")
		}
		return sim.Focus{Name: c.Body}, nil
	case "next":
		return sim.FocusNext{}, nil
	case "prev":
		return sim.FocusPrev{}, nil
	case "reset":
		return sim.Reset{}, nil
	case "warp":
		return sim.SetTimeWarp{Percent: c.Value}, nil
	case "position_mode":
		m, err := orbit.ParsePositionMode(c.Mode)
		if err != nil {
			return nil, err
		}
		return sim.SetPositionMode{Mode: m}, nil
	case "data_mode":
		m, err := orbit.ParseDataMode(c.Mode)
		if err != nil {
			return nil, err
		}
		return sim.SetDataMode{Mode: m}, nil
	case "scrub_distance":
		if c.Value <= 0 {
			return nil, fmt.Errorf("scrub_distance: distance must be positive, got %v", c.Value)
		}
		return sim.ScrubToDistance{Distance: c.Value, Tween: c.Tween}, nil
	case "scrub_percent":
		return sim.ScrubToPercent{Percent: c.Value, Tween: c.Tween}, nil
	case "tour":
		return sim.GuidedTour{Key: c.Key}, nil
	case "drag":
		return sim.SetDragging{On: c.On}, nil
	case "orbit":
		return sim.OrbitView{DAzimuth: c.DAzimuth, DPolar: c.DPolar}, nil
	case "dolly":
		if c.Value <= 0 {
			return nil, fmt.Errorf("dolly: factor must be positive, got %v", c.Value)
		}
		return sim.Dolly{Factor: c.Value}, nil
	case "hidden":
		return sim.SetHidden{Hidden: c.On}, nil
	case "hover":
		return sim.Hover{Name: c.Body}, nil
	case "autorotate":
		return sim.SetAutoRotate{On: c.On}, nil
	case "resync":
		return sim.Resync{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", c.Type, ErrUnknownCommand)
	}
}
