package session

import (
	"xray-cbt/internal/filter"
	"xray-cbt/internal/item"
)

// InputKind identifies a trainee action.
type InputKind int

const (
	InputActivity    InputKind = iota // pointer movement or any key
	InputClick                        // click on a view at X,Y
	InputZoom                         // zoom a view by Steps notches
	InputPan                          // drag a view by X,Y
	InputFilter                       // select Filter on both views
	InputResetView                    // restore scale, pan and filter on both views
	InputTogglePause                  // pause or resume the belt
	InputSelect                       // choose Category
	InputConfirm                      // submit the chosen category
	InputAcknowledge                  // dismiss an idle warning
	InputAbort                        // end the session now
)

var inputNames = [...]string{
	"activity", "click", "zoom", "pan", "filter", "reset-view",
	"toggle-pause", "select", "confirm", "acknowledge", "abort",
}

func (k InputKind) String() string {
	if int(k) < len(inputNames) {
		return inputNames[k]
	}
	return "unknown"
}

// Input is one event posted by the UI. Fields beyond Kind are read
// according to Kind.
type Input struct {
	Kind     InputKind
	View     item.View
	X, Y     float64 // screen position for clicks, delta for pans
	Steps    int
	Filter   filter.Kind
	Category int
}

// Activity reports generic pointer or keyboard activity.
func Activity() Input { return Input{Kind: InputActivity} }

// Click reports a click at a screen position on a view.
func Click(v item.View, x, y float64) Input {
	return Input{Kind: InputClick, View: v, X: x, Y: y}
}

// Zoom reports wheel notches on a view; positive zooms in.
func Zoom(v item.View, steps int) Input {
	return Input{Kind: InputZoom, View: v, Steps: steps}
}

// Pan reports a drag delta on a view.
func Pan(v item.View, dx, dy float64) Input {
	return Input{Kind: InputPan, View: v, X: dx, Y: dy}
}

// SetFilter selects a pixel filter for both views.
func SetFilter(k filter.Kind) Input { return Input{Kind: InputFilter, Filter: k} }

// ResetView restores both views to their defaults.
func ResetView() Input { return Input{Kind: InputResetView} }

// TogglePause pauses or resumes both belts.
func TogglePause() Input { return Input{Kind: InputTogglePause} }

// Select chooses a category for the current item.
func Select(category int) Input { return Input{Kind: InputSelect, Category: category} }

// Confirm submits the selected category.
func Confirm() Input { return Input{Kind: InputConfirm} }

// Acknowledge dismisses an idle warning.
func Acknowledge() Input { return Input{Kind: InputAcknowledge} }

// Abort ends the session.
func Abort() Input { return Input{Kind: InputAbort} }
