package main

import (
	"bytes"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"

	"peek/internal/failure"
	"peek/internal/view"
)

// Global font source for overlays and placeholders
var globalFontSource *text.GoTextFaceSource

// InitGraphics initializes the global font source for text rendering
func InitGraphics() error {
	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return err
	}
	globalFontSource = s
	return nil
}

// DrawText draws text with specified position and color
func DrawText(screen *ebiten.Image, textString string, font *text.GoTextFace, x, y float64, textColor color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, textString, font, op)
}

// DrawFilledRect draws filled rectangles with float64 coordinates
func DrawFilledRect(screen *ebiten.Image, x, y, w, h float64, bgColor color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), bgColor, false)
}

// imageGeoM maps an unrotated w x h bitmap onto r: rotate about its
// centre, scale, then move the centre to the centre of r.
func imageGeoM(w, h int, r view.Rect) ebiten.GeoM {
	var m ebiten.GeoM
	m.Translate(-float64(w)/2, -float64(h)/2)
	if r.Rotation != 0 {
		m.Rotate(float64(r.Rotation) * math.Pi / 180)
	}
	m.Scale(r.Scale, r.Scale)
	c := r.Center()
	m.Translate(c.X, c.Y)
	return m
}

// truncate shortens s to max runes with an ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// errorLines is the text of an error placeholder
func errorLines(name string, reason failure.Reason) []string {
	return []string{
		"ERROR",
		"File: " + name,
		"Reason: " + reason.Message(),
	}
}

// CreateErrorImage creates an error placeholder image with file name and reason
func CreateErrorImage(width, height int, name string, reason failure.Reason) *ebiten.Image {
	// Default size if not specified
	if width <= 0 || height <= 0 {
		width, height = 400, 300
	}

	errorImg := ebiten.NewImage(width, height)
	errorImg.Fill(color.RGBA{120, 30, 30, 255}) // Dark red background

	// White border
	white := color.RGBA{255, 255, 255, 255}
	DrawFilledRect(errorImg, 0, 0, float64(width), 3, white)
	DrawFilledRect(errorImg, 0, float64(height-3), float64(width), 3, white)
	DrawFilledRect(errorImg, 0, 0, 3, float64(height), white)
	DrawFilledRect(errorImg, float64(width-3), 0, 3, float64(height), white)

	if globalFontSource == nil {
		return errorImg
	}

	errorFont := &text.GoTextFace{
		Source: globalFontSource,
		Size:   20.0,
	}

	// Rough estimate: 10px per character
	maxChars := (width - 20) / 10
	for i, line := range errorLines(name, reason) {
		DrawText(errorImg, truncate(line, maxChars), errorFont, 10, float64(10+30*i), white)
	}

	return errorImg
}
