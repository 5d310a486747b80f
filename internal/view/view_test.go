package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vp800  = Sz(800, 600)
	img16  = Sz(1600, 1200)
	img400 = Sz(400, 300)
)

func TestFitZoom(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		vp, img  Size
		rotation int
		want     float64
	}{
		{"Downscale to fit", DefaultOptions(), vp800, img16, 0, 0.5},
		{"Never upscale by default", DefaultOptions(), vp800, img400, 0, 1},
		{"Always fill upscales", Options{AlwaysFill: true}, vp800, img400, 0, 2},
		{"Rotation swaps the sides", DefaultOptions(), vp800, Sz(1600, 800), 90, 0.375},
		{"Clamped to min zoom", Options{MinZoom: 0.5, MaxZoom: 4}, Sz(100, 100), Sz(1000, 1000), 0, 0.5},
		{"Empty viewport", DefaultOptions(), Sz(0, 0), img16, 0, 1},
		{"Empty image", DefaultOptions(), vp800, Sz(0, 10), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.opts).FitZoom(tt.vp, tt.img, tt.rotation)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFitRoundingNeverExceedsViewport(t *testing.T) {
	for _, rounding := range []Rounding{RoundNearest, RoundFloor, RoundNone} {
		tr := New(Options{MinZoom: 0.001, MaxZoom: 16, Rounding: rounding})
		for w := 101; w < 140; w += 7 {
			for h := 29; h < 80; h += 5 {
				vp := Sz(w, h)
				for _, img := range []Size{Sz(300, 200), Sz(333, 1000), Sz(1234, 567)} {
					z := tr.FitZoom(vp, img, 0)
					assert.LessOrEqual(t, img.W*z, vp.W+1e-9)
					assert.LessOrEqual(t, img.H*z, vp.H+1e-9)
					if rounding != RoundNone {
						long := math.Max(img.W, img.H) * z
						assert.InDelta(t, math.Round(long), long, 1e-6, "longer side is whole pixels")
					}
				}
			}
		}
	}
}

func TestFitRoundingModes(t *testing.T) {
	vp, img := Sz(100, 31), Sz(300, 200)

	assert.InDelta(t, 0.155, New(Options{Rounding: RoundNone}).FitZoom(vp, img, 0), 1e-9)
	assert.InDelta(t, 46.0/300, New(Options{Rounding: RoundFloor}).FitZoom(vp, img, 0), 1e-9)
	assert.InDelta(t, 46.0/300, New(Options{Rounding: RoundNearest}).FitZoom(vp, img, 0), 1e-9)

	vp = Sz(100, 32)
	// 300 * 0.16 = 48 exactly
	assert.InDelta(t, 0.16, New(Options{Rounding: RoundNearest}).FitZoom(vp, img, 0), 1e-9)
}

func TestParseRounding(t *testing.T) {
	for in, want := range map[string]Rounding{"nearest": RoundNearest, "FLOOR": RoundFloor, "none": RoundNone, "": RoundNearest} {
		got, err := ParseRounding(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRounding("ceil")
	assert.Error(t, err)
}

func TestResetForImage(t *testing.T) {
	tr := New(DefaultOptions())
	prev := State{Zoom: 3, Pan: Point{X: 10, Y: 10}, Rotation: 90}

	s := tr.Reset(vp800, img16, prev)
	assert.Equal(t, State{Zoom: 0.5, Fit: true, Rotation: 0}, s)

	keep := New(Options{KeepRotation: true})
	s = keep.Reset(vp800, img16, prev)
	assert.Equal(t, 90, s.Rotation)
	assert.True(t, s.Fit)
	assert.Zero(t, s.Pan)
	// a kept quarter turn makes the image 1200x1600, so height decides the fit
	assert.InDelta(t, 0.375, s.Zoom, 1e-9)
}

func TestZoomClamp(t *testing.T) {
	tr := New(Options{MinZoom: 0.1, MaxZoom: 8})
	s := tr.Reset(vp800, img16, State{})

	for i := 0; i < 5; i++ {
		s = tr.Zoom(s, vp800, img16, 1000, Point{X: 123, Y: 456})
		assert.LessOrEqual(t, s.Zoom, 8.0)
	}
	assert.Equal(t, 8.0, s.Zoom)
	assert.False(t, s.Fit)

	for i := 0; i < 5; i++ {
		s = tr.Zoom(s, vp800, img16, 0.001, Point{X: 400, Y: 300})
		assert.GreaterOrEqual(t, s.Zoom, 0.1)
	}
	assert.Equal(t, 0.1, s.Zoom)
}

func TestZoomKeepsAnchorFixed(t *testing.T) {
	tr := New(DefaultOptions())
	s := tr.Reset(vp800, img16, State{})
	anchor := Point{X: 200, Y: 150}

	imagePointAt := func(s State, p Point) Point {
		return Point{X: (p.X-400)/s.Zoom - s.Pan.X, Y: (p.Y-300)/s.Zoom - s.Pan.Y}
	}

	before := imagePointAt(s, anchor)
	s = tr.Zoom(s, vp800, img16, 2, anchor)
	after := imagePointAt(s, anchor)

	assert.InDelta(t, 1.0, s.Zoom, 1e-9)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assert.InDelta(t, 200, s.Pan.X, 1e-9)
	assert.InDelta(t, 150, s.Pan.Y, 1e-9)
}

func TestZoomIgnoresInvalidFactor(t *testing.T) {
	tr := New(DefaultOptions())
	s := tr.Reset(vp800, img16, State{})
	for _, f := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		assert.Equal(t, s, tr.Zoom(s, vp800, img16, f, Point{}))
	}
}

func TestPanZeroIsNoOp(t *testing.T) {
	tr := New(DefaultOptions())
	fit := tr.Reset(vp800, img16, State{})
	zoomed := tr.Zoom(fit, vp800, img16, 4, Point{X: 10, Y: 590})
	panned := tr.Pan(zoomed, vp800, img16, Point{X: -5000, Y: 5000})
	rotated := tr.Zoom(tr.Rotate(fit, vp800, img16, 1), vp800, img16, 3, Point{X: 700, Y: 20})

	for _, s := range []State{fit, zoomed, panned, rotated} {
		assert.Equal(t, s, tr.Pan(s, vp800, img16, Point{}))
	}
}

func TestPanClamp(t *testing.T) {
	tr := New(DefaultOptions())

	// 1600x1200 at 100% in 800x600: 400 and 300 image pixels of slack
	s := tr.Actual(State{}, vp800, img16)
	s = tr.Pan(s, vp800, img16, Point{X: 10000, Y: -10000})
	assert.Equal(t, Point{X: 400, Y: -300}, s.Pan)

	r := tr.Rect(s, vp800, img16)
	assert.InDelta(t, 0, r.X, 1e-9, "left edge reaches the viewport edge")
	assert.InDelta(t, -600, r.Y, 1e-9)

	// smaller than the viewport stays centred
	small := tr.Reset(vp800, img400, State{})
	small = tr.Pan(small, vp800, img400, Point{X: 50, Y: 50})
	assert.Zero(t, small.Pan)
}

func TestRotate(t *testing.T) {
	tr := New(DefaultOptions())
	img := Sz(1600, 800)
	s0 := tr.Reset(vp800, img, State{})
	assert.InDelta(t, 0.5, s0.Zoom, 1e-9)

	s1 := tr.Rotate(s0, vp800, img, 1)
	assert.Equal(t, 90, s1.Rotation)
	assert.InDelta(t, 0.375, s1.Zoom, 1e-9)

	assert.Equal(t, 270, tr.Rotate(s0, vp800, img, -1).Rotation)
	assert.Equal(t, 180, tr.Rotate(s0, vp800, img, 6).Rotation)
}

func TestRotateFullTurnRoundTrip(t *testing.T) {
	tr := New(DefaultOptions())
	for _, img := range []Size{img16, img400, Sz(1600, 800), Sz(37, 911)} {
		s0 := tr.Reset(vp800, img, State{})
		assert.Equal(t, s0, tr.Rotate(s0, vp800, img, 4))

		zoomed := tr.Zoom(s0, vp800, img, 3, Point{X: 1, Y: 1})
		back := tr.Rotate(zoomed, vp800, img, 4)
		assert.Equal(t, s0.Rotation, back.Rotation)
		assert.Equal(t, s0.Zoom, back.Zoom)
	}
}

func TestActualAndFit(t *testing.T) {
	tr := New(DefaultOptions())
	s := tr.Rotate(tr.Reset(vp800, img16, State{}), vp800, img16, 1)

	actual := tr.Actual(s, vp800, img16)
	assert.Equal(t, 1.0, actual.Zoom)
	assert.False(t, actual.Fit)
	assert.Equal(t, 90, actual.Rotation)

	fit := tr.Fit(actual, vp800, img16)
	assert.True(t, fit.Fit)
	assert.Equal(t, 90, fit.Rotation)
	assert.InDelta(t, tr.FitZoom(vp800, img16, 90), fit.Zoom, 1e-9)
}

func TestResize(t *testing.T) {
	tr := New(DefaultOptions())
	s := tr.Reset(vp800, img16, State{})

	bigger := Sz(1600, 1200)
	assert.Equal(t, 1.0, tr.Resize(s, bigger, img16).Zoom, "fit state follows the viewport")

	manual := tr.Pan(tr.Actual(s, vp800, img16), vp800, img16, Point{X: -10000})
	assert.Equal(t, -400.0, manual.Pan.X)
	resized := tr.Resize(manual, Sz(1400, 600), img16)
	assert.Equal(t, 1.0, resized.Zoom)
	assert.Equal(t, -100.0, resized.Pan.X, "pan re-clamped to the new slack")
}

func TestRect(t *testing.T) {
	tr := New(DefaultOptions())
	s := tr.Reset(vp800, img16, State{})
	r := tr.Rect(s, vp800, img16)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 800, H: 600, Scale: 0.5}, r)
	assert.Equal(t, Point{X: 400, Y: 300}, r.Center())

	rot := tr.Rotate(s, vp800, Sz(1600, 800), 1)
	rr := tr.Rect(rot, vp800, Sz(1600, 800))
	assert.InDelta(t, 300, rr.W, 1e-9)
	assert.InDelta(t, 600, rr.H, 1e-9)
	assert.Equal(t, 90, rr.Rotation)
}

func TestNewFixesBadLimits(t *testing.T) {
	o := New(Options{MinZoom: -1, MaxZoom: 0}).Options()
	assert.Equal(t, 0.05, o.MinZoom)
	assert.Equal(t, 16.0, o.MaxZoom)
}
