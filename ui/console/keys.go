package console

import (
	"fyne.io/fyne/v2"

	"xray-cbt/internal/filter"
	"xray-cbt/internal/item"
	"xray-cbt/internal/session"
)

// filterKeys maps shortcut letters to filters.
var filterKeys = map[rune]filter.Kind{
	'q': filter.Grayscale,
	'w': filter.Invert,
	'a': filter.OrganicOnly,
	's': filter.OrganicStrip,
	'd': filter.Brighten,
	'f': filter.Enhance,
	'e': filter.EdgeEnhance,
}

// runeInput translates a typed character into a session input. Zoom keys
// act on the focused view.
func runeInput(r rune, focused item.View) (session.Input, bool) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	if k, ok := filterKeys[r]; ok {
		return session.SetFilter(k), true
	}
	switch r {
	case 'r':
		return session.ResetView(), true
	case '+', '=':
		return session.Zoom(focused, 1), true
	case '-', '_':
		return session.Zoom(focused, -1), true
	}
	return session.Input{}, false
}

// keyInput translates a named key into a session input.
func keyInput(k fyne.KeyName) (session.Input, bool) {
	switch k {
	case fyne.KeySpace:
		return session.TogglePause(), true
	case fyne.KeyReturn, fyne.KeyEnter:
		return session.Confirm(), true
	case fyne.KeyEscape:
		return session.Abort(), true
	}
	return session.Input{}, false
}

// toFrame converts a widget-relative position into renderer frame pixels.
// Positions outside the widget are rejected.
func toFrame(pos fyne.Position, size fyne.Size, frameW, frameH int) (float64, float64, bool) {
	if size.Width <= 0 || size.Height <= 0 {
		return 0, 0, false
	}
	if pos.X < 0 || pos.Y < 0 || pos.X > size.Width || pos.Y > size.Height {
		return 0, 0, false
	}
	x := float64(pos.X) / float64(size.Width) * float64(frameW)
	y := float64(pos.Y) / float64(size.Height) * float64(frameH)
	return x, y, true
}

// toFrameDelta scales a drag delta the same way.
func toFrameDelta(dx, dy float32, size fyne.Size, frameW, frameH int) (float64, float64) {
	if size.Width <= 0 || size.Height <= 0 {
		return 0, 0
	}
	return float64(dx) / float64(size.Width) * float64(frameW),
		float64(dy) / float64(size.Height) * float64(frameH)
}
