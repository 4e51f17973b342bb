// Package filter implements the diagnostic pixel filters applied to a rendered
// viewport frame. Every filter works in place on an *image.RGBA and leaves the
// alpha channel untouched.
package filter

import (
	"fmt"
	"image"
	"math"

	"xray-cbt/pkg/colorutil"
)

// Kind identifies a pixel filter.
type Kind int

const (
	None Kind = iota
	Grayscale
	Invert
	OrganicOnly
	OrganicStrip
	Brighten
	Enhance
	EdgeEnhance
)

var kindNames = map[Kind]string{
	None:         "none",
	Grayscale:    "grayscale",
	Invert:       "invert",
	OrganicOnly:  "organic-only",
	OrganicStrip: "organic-strip",
	Brighten:     "brighten",
	Enhance:      "enhance",
	EdgeEnhance:  "edge-enhance",
}

// Operator-facing labels shown on the console.
var kindLabels = map[Kind]string{
	None:         "Normal",
	Grayscale:    "B&W",
	Invert:       "NEG",
	OrganicOnly:  "O2",
	OrganicStrip: "OS",
	Brighten:     "HI",
	Enhance:      "ENH",
	EdgeEnhance:  "SEN",
}

// String returns the filter identifier.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("filter(%d)", int(k))
}

// Label returns the short imaging label shown to the trainee.
func (k Kind) Label() string {
	if s, ok := kindLabels[k]; ok {
		return s
	}
	return "?"
}

// Parse resolves a filter identifier or label. Kinds are tried in display
// order.
func Parse(s string) (Kind, error) {
	for _, k := range Kinds() {
		if s == kindNames[k] || s == kindLabels[k] {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown filter %q", s)
}

// Kinds lists every filter in display order.
func Kinds() []Kind {
	return []Kind{None, Grayscale, Invert, OrganicOnly, OrganicStrip, Brighten, Enhance, EdgeEnhance}
}

// Apply runs filter k over img in place.
// The caller is responsible for handing in a freshly rendered frame; filters
// never compose.
func Apply(img *image.RGBA, k Kind) {
	switch k {
	case Grayscale:
		eachPixel(img, desaturate)
	case Invert:
		eachPixel(img, invert)
	case OrganicOnly:
		eachPixel(img, organicOnly)
	case OrganicStrip:
		eachPixel(img, organicStrip)
	case Brighten:
		eachPixel(img, brighten)
	case Enhance:
		eachPixel(img, enhance)
	case EdgeEnhance:
		edgeEnhance(img)
	}
}

// eachPixel calls fn on the straight (non-premultiplied) colour of every
// visible pixel inside img.Bounds() and stores the result premultiplied again.
// Fully transparent pixels are skipped.
func eachPixel(img *image.RGBA, fn func(r, g, b uint8) (uint8, uint8, uint8)) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			px := img.Pix[row+x*4 : row+x*4+4 : row+x*4+4]
			if px[3] == 0 {
				continue
			}
			r, g, bl := straight(px)
			nr, ng, nb := fn(r, g, bl)
			store(px, nr, ng, nb)
		}
	}
}

// straight returns the pixel's colour with alpha divided out.
func straight(px []uint8) (r, g, b uint8) {
	a := px[3]
	if a == 255 {
		return px[0], px[1], px[2]
	}
	if a == 0 {
		return 0, 0, 0
	}
	un := func(v uint8) uint8 {
		return colorutil.Clamp255(float64(v) * 255 / float64(a))
	}
	return un(px[0]), un(px[1]), un(px[2])
}

// store writes a straight colour back, premultiplied by the pixel's alpha.
func store(px []uint8, r, g, b uint8) {
	a := px[3]
	if a == 255 {
		px[0], px[1], px[2] = r, g, b
		return
	}
	pre := func(v uint8) uint8 {
		return colorutil.Clamp255(float64(v) * float64(a) / 255)
	}
	px[0], px[1], px[2] = pre(r), pre(g), pre(b)
}

func desaturate(r, g, b uint8) (uint8, uint8, uint8) {
	avg := colorutil.Clamp255(colorutil.Average(r, g, b))
	return avg, avg, avg
}

func invert(r, g, b uint8) (uint8, uint8, uint8) {
	return 255 - r, 255 - g, 255 - b
}

// IsOrganic reports whether a pixel falls in the dark-blue or light-blue bands
// that the organic-only filter desaturates.
func IsOrganic(r, g, b uint8) bool {
	ri, gi, bi := int(r), int(g), int(b)
	dark := bi > 30 && bi > ri && bi > gi-20
	light := bi > 150 && gi > 130 && ri < 210
	return dark || light
}

// IsOrganicStrip reports whether a pixel is in the orange band removed by the
// organic-strip filter.
func IsOrganicStrip(r, g, b uint8) bool {
	return r > 110 && g > 50 && g < 220 && b < 160 && r > g && g > b
}

func organicOnly(r, g, b uint8) (uint8, uint8, uint8) {
	if IsOrganic(r, g, b) {
		return desaturate(r, g, b)
	}
	return r, g, b
}

func organicStrip(r, g, b uint8) (uint8, uint8, uint8) {
	if IsOrganicStrip(r, g, b) {
		return desaturate(r, g, b)
	}
	return r, g, b
}

const brightenFactor = 1.5

func brighten(r, g, b uint8) (uint8, uint8, uint8) {
	return scaled(r, g, b, brightenFactor)
}

func scaled(r, g, b uint8, f float64) (uint8, uint8, uint8) {
	return colorutil.Clamp255(float64(r) * f), colorutil.Clamp255(float64(g) * f), colorutil.Clamp255(float64(b) * f)
}

// Localized contrast: bright regions are lifted, dark regions pushed down.
const (
	enhanceThreshold = 140
	enhanceGain      = 1.15
	enhanceCut       = 0.75
)

func enhance(r, g, b uint8) (uint8, uint8, uint8) {
	if colorutil.Luminance(r, g, b) > enhanceThreshold {
		return scaled(r, g, b, enhanceGain)
	}
	return scaled(r, g, b, enhanceCut)
}

// Edge-enhance blend weights.
const (
	edgeWeight     = 1.5
	edgeContrast   = 1.1
	edgeBrightness = -10
)

// edgeEnhance overlays Sobel edge magnitude on the frame. Gradients are read
// from an untouched copy of the luminance so the output never feeds back into
// its own neighbourhood. Out-of-bounds and transparent neighbours count as
// black.
func edgeEnhance(img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			i := row + x*4
			lum[y*w+x] = colorutil.Luminance(straight(img.Pix[i : i+4]))
		}
	}
	at := func(x, y int) float64 {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 0
		}
		return lum[y*w+x]
	}

	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			px := img.Pix[row+x*4 : row+x*4+4 : row+x*4+4]
			if px[3] == 0 {
				continue
			}
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			edge := math.Sqrt(gx*gx+gy*gy) * edgeWeight

			mix := func(v uint8) uint8 {
				return colorutil.Clamp255(float64(v)*edgeContrast + edge + edgeBrightness)
			}
			r, g, bl := straight(px)
			store(px, mix(r), mix(g), mix(bl))
		}
	}
}
