// Package view holds the zoom, pan and rotation of the image on screen and
// the arithmetic that turns them into a drawable rectangle. Every function
// is pure: it takes a State and returns a new one.
package view

import (
	"fmt"
	"math"
	"strings"
)

// Size is a width and height in pixels
type Size struct {
	W, H float64
}

// Sz builds a Size from integer pixels
func Sz(w, h int) Size {
	return Size{W: float64(w), H: float64(h)}
}

func (s Size) empty() bool {
	return s.W <= 0 || s.H <= 0
}

func (s Size) center() Point {
	return Point{X: s.W / 2, Y: s.H / 2}
}

// Point is a position or offset
type Point struct {
	X, Y float64
}

// State is the view of one image. Pan is the offset of the image centre
// from the viewport centre, measured in unscaled pixels of the rotated
// image. Fit marks a zoom that follows the viewport.
type State struct {
	Zoom     float64
	Fit      bool
	Pan      Point
	Rotation int
}

func (s State) String() string {
	mode := fmt.Sprintf("%.0f%%", s.Zoom*100)
	if s.Fit {
		mode += " fit"
	}
	return fmt.Sprintf("%s pan(%.1f,%.1f) rot %d", mode, s.Pan.X, s.Pan.Y, s.Rotation)
}

// Rect is where and how large the rotated image lands on screen
type Rect struct {
	X, Y, W, H float64
	Scale      float64
	Rotation   int
}

// Center is the screen position of the image centre
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Rounding controls how fit zoom is snapped to whole pixels
type Rounding int

const (
	RoundNearest Rounding = iota
	RoundFloor
	RoundNone
)

// ParseRounding accepts "nearest", "floor" and "none".
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "":
		return RoundNearest, nil
	case "floor":
		return RoundFloor, nil
	case "none":
		return RoundNone, nil
	default:
		return RoundNearest, fmt.Errorf("unknown rounding %q", s)
	}
}

// Options configures a Transform
type Options struct {
	MinZoom      float64
	MaxZoom      float64
	AlwaysFill   bool
	KeepRotation bool
	Rounding     Rounding
}

// DefaultOptions returns 5% to 1600% zoom with nearest-pixel fitting.
func DefaultOptions() Options {
	return Options{MinZoom: 0.05, MaxZoom: 16, Rounding: RoundNearest}
}

// Transform computes view states
type Transform struct {
	opts Options
}

// New returns a Transform. Out-of-range zoom limits fall back to the
// defaults.
func New(opts Options) *Transform {
	def := DefaultOptions()
	if opts.MinZoom <= 0 {
		opts.MinZoom = def.MinZoom
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = math.Max(def.MaxZoom, opts.MinZoom)
	}
	return &Transform{opts: opts}
}

// Options returns the effective options
func (t *Transform) Options() Options {
	return t.opts
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg - deg%90
}

func rotated(img Size, rotation int) Size {
	if rotation == 90 || rotation == 270 {
		return Size{W: img.H, H: img.W}
	}
	return img
}

func (t *Transform) clampZoom(z float64) float64 {
	return math.Min(math.Max(z, t.opts.MinZoom), t.opts.MaxZoom)
}

// FitZoom is the largest zoom, at most 1 unless AlwaysFill is set, at which
// the rotated image fits entirely inside vp.
func (t *Transform) FitZoom(vp, img Size, rotation int) float64 {
	r := rotated(img, normalizeRotation(rotation))
	if vp.empty() || r.empty() {
		return 1
	}
	z := math.Min(vp.W/r.W, vp.H/r.H)
	if !t.opts.AlwaysFill {
		z = math.Min(z, 1)
	}
	return t.clampZoom(t.round(z, vp, r))
}

// round snaps z so the longer displayed side is a whole number of pixels,
// without letting either side outgrow the viewport.
func (t *Transform) round(z float64, vp, r Size) float64 {
	if t.opts.Rounding == RoundNone {
		return z
	}
	side := math.Max(r.W, r.H)
	d := z * side
	if t.opts.Rounding == RoundFloor {
		d = math.Floor(d)
	} else {
		d = math.Round(d)
	}
	d = math.Max(d, 1)
	snapped := d / side
	const eps = 1e-9
	if r.W*snapped > vp.W+eps || r.H*snapped > vp.H+eps {
		snapped = math.Max(math.Floor(z*side), 1) / side
	}
	return snapped
}

func clampAxis(pan, zoom, imgLen, vpLen float64) float64 {
	d := imgLen * zoom
	if d <= vpLen {
		return 0
	}
	limit := (d - vpLen) / (2 * zoom)
	return math.Min(math.Max(pan, -limit), limit)
}

// clampPan keeps the image covering the viewport along every axis where it
// is larger, and centred along the others.
func (t *Transform) clampPan(s State, vp, img Size) State {
	r := rotated(img, s.Rotation)
	if s.Zoom <= 0 || r.empty() {
		s.Pan = Point{}
		return s
	}
	s.Pan.X = clampAxis(s.Pan.X, s.Zoom, r.W, vp.W)
	s.Pan.Y = clampAxis(s.Pan.Y, s.Zoom, r.H, vp.H)
	return s
}

// Reset is the state for a newly shown image: fitted, centred, and
// unrotated unless KeepRotation carries prev's rotation over.
func (t *Transform) Reset(vp, img Size, prev State) State {
	rotation := 0
	if t.opts.KeepRotation {
		rotation = normalizeRotation(prev.Rotation)
	}
	return t.fitted(vp, img, rotation)
}

func (t *Transform) fitted(vp, img Size, rotation int) State {
	return State{
		Zoom:     t.FitZoom(vp, img, rotation),
		Fit:      true,
		Rotation: rotation,
	}
}

// Fit returns to fit-to-window, keeping the rotation
func (t *Transform) Fit(s State, vp, img Size) State {
	return t.fitted(vp, img, normalizeRotation(s.Rotation))
}

// Actual shows the image at 100%, centred.
func (t *Transform) Actual(s State, vp, img Size) State {
	s.Zoom = t.clampZoom(1)
	s.Fit = false
	s.Pan = Point{}
	return t.clampPan(s, vp, img)
}

func (t *Transform) zoomOf(s State, vp, img Size) float64 {
	if s.Zoom > 0 {
		return s.Zoom
	}
	return t.FitZoom(vp, img, s.Rotation)
}

// Zoom multiplies the zoom by factor within [MinZoom, MaxZoom], keeping the
// image point under anchor (screen coordinates) where it is. Non-positive
// factors leave s unchanged.
func (t *Transform) Zoom(s State, vp, img Size, factor float64, anchor Point) State {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return s
	}
	z := t.zoomOf(s, vp, img)
	nz := t.clampZoom(z * factor)
	c := vp.center()

	// image point under the anchor, relative to the image centre
	qx := (anchor.X-c.X)/z - s.Pan.X
	qy := (anchor.Y-c.Y)/z - s.Pan.Y

	s.Zoom = nz
	s.Fit = false
	s.Pan = Point{X: (anchor.X-c.X)/nz - qx, Y: (anchor.Y-c.Y)/nz - qy}
	return t.clampPan(s, vp, img)
}

// Pan moves the image by delta screen pixels.
func (t *Transform) Pan(s State, vp, img Size, delta Point) State {
	z := t.zoomOf(s, vp, img)
	s.Zoom = z
	s.Pan.X += delta.X / z
	s.Pan.Y += delta.Y / z
	return t.clampPan(s, vp, img)
}

// Rotate turns the image by quarterTurns x 90 degrees (negative turns go
// counter-clockwise) and refits, since the aspect ratio may have changed.
func (t *Transform) Rotate(s State, vp, img Size, quarterTurns int) State {
	return t.fitted(vp, img, normalizeRotation(s.Rotation+quarterTurns*90))
}

// Resize adapts s to a new viewport: fitted states refit, others keep their
// zoom and re-clamp the pan.
func (t *Transform) Resize(s State, vp, img Size) State {
	if s.Fit || s.Zoom <= 0 {
		return t.fitted(vp, img, normalizeRotation(s.Rotation))
	}
	return t.clampPan(s, vp, img)
}

// Rect returns the screen rectangle covered by the rotated image.
func (t *Transform) Rect(s State, vp, img Size) Rect {
	z := t.zoomOf(s, vp, img)
	r := rotated(img, normalizeRotation(s.Rotation))
	c := vp.center()
	w, h := r.W*z, r.H*z
	cx := c.X + s.Pan.X*z
	cy := c.Y + s.Pan.Y*z
	return Rect{
		X:        cx - w/2,
		Y:        cy - h/2,
		W:        w,
		H:        h,
		Scale:    z,
		Rotation: normalizeRotation(s.Rotation),
	}
}
