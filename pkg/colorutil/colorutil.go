// Package colorutil provides shared color utilities for the inspection console.
package colorutil

import (
	"image/color"
	"math"
)

// Overlay colors used throughout the application.
var (
	Black      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	MarkerRed  = color.RGBA{R: 230, G: 30, B: 30, A: 255}
	DebugGreen = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// Average returns the arithmetic mean of the three channels.
func Average(r, g, b uint8) float64 {
	return (float64(r) + float64(g) + float64(b)) / 3
}

// Luminance returns the Rec. 601 luma of an RGB triple (0-255).
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Clamp255 rounds v to the nearest integer and clamps it into a byte.
func Clamp255(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

