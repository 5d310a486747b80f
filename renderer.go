package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"peek/internal/config"
	"peek/internal/decoder"
	"peek/internal/failure"
	"peek/internal/logger"
	"peek/internal/navigator"
)

// Common colors used in rendering
var (
	colorWhite     = color.RGBA{255, 255, 255, 255}
	colorGray      = color.RGBA{180, 180, 180, 255}
	colorLightGray = color.RGBA{192, 192, 192, 255}
	colorYellow    = color.RGBA{255, 255, 100, 255}
	colorCyan      = color.RGBA{100, 255, 255, 255}
	colorLightBlue = color.RGBA{200, 200, 255, 255}
	colorGreen     = color.RGBA{100, 255, 100, 255}
	colorOrange    = color.RGBA{255, 200, 100, 255}
	colorLightRed  = color.RGBA{255, 150, 150, 255}

	// Background colors for semi-transparent overlays
	bgColorLight  = color.RGBA{0, 0, 0, 128}
	bgColorMedium = color.RGBA{0, 0, 0, 160}
	bgColorDark   = color.RGBA{0, 0, 0, 200}
)

// textureCacheSize is how many GPU textures stay alive; the decoded
// bitmaps themselves live in the prefetch cache
const textureCacheSize = 3

// Renderer handles all drawing operations
type Renderer struct {
	renderState RenderState

	// GPU copies of decoded bitmaps, keyed by bitmap identity so a
	// re-decode after invalidation gets a fresh texture
	textures *simplelru.LRU[*decoder.Bitmap, *ebiten.Image]

	// error placeholders keyed by path and reason
	placeholders *simplelru.LRU[string, *ebiten.Image]
}

func deallocate[K comparable](_ K, img *ebiten.Image) {
	img.Deallocate()
}

// NewRenderer creates a new Renderer
func NewRenderer(renderState RenderState) (*Renderer, error) {
	textures, err := simplelru.NewLRU[*decoder.Bitmap, *ebiten.Image](textureCacheSize, deallocate[*decoder.Bitmap])
	if err != nil {
		return nil, err
	}
	placeholders, err := simplelru.NewLRU[string, *ebiten.Image](textureCacheSize, deallocate[string])
	if err != nil {
		return nil, err
	}
	return &Renderer{
		renderState:  renderState,
		textures:     textures,
		placeholders: placeholders,
	}, nil
}

func (r *Renderer) font(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: globalFontSource, Size: size}
}

// texture returns the GPU image for b, uploading it on first use
func (r *Renderer) texture(b *decoder.Bitmap) *ebiten.Image {
	if img, ok := r.textures.Get(b); ok {
		return img
	}
	img := ebiten.NewImageFromImage(b.Image)
	r.textures.Add(b, img)
	logger.Debug("Uploaded texture %dx%d (%s)", b.Width, b.Height, b.Format)
	return img
}

// placeholder returns the error image for the current entry
func (r *Renderer) placeholder(s navigator.Snapshot) *ebiten.Image {
	key := s.Entry.Path + "\x00" + s.Reason.String()
	if img, ok := r.placeholders.Get(key); ok {
		return img
	}
	img := CreateErrorImage(400, 120, s.Entry.Name, s.Reason)
	r.placeholders.Add(key, img)
	return img
}

// Draw renders the entire screen
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Clear()

	s := r.renderState.Snapshot()
	switch s.Phase {
	case navigator.Idle:
		r.drawCenteredMessage(screen, "No image", colorGray)
	case navigator.Loading:
		r.drawCenteredMessage(screen, "Loading "+s.Entry.Name+"...", colorLightGray)
	case navigator.Viewing:
		r.drawImage(screen, s)
	case navigator.Error:
		r.drawError(screen, s)
	}

	// Draw info display (page status, etc.) at bottom of screen if enabled
	if r.renderState.IsShowingInfo() {
		r.drawInfoDisplay(screen, s)
	}

	if r.renderState.IsShowingHelp() {
		r.drawHelpOverlay(screen)
	}

	if r.renderState.IsInPageInputMode() {
		r.drawPageInputOverlay(screen, s)
	}

	if r.renderState.GetOverlayMessage() != "" && time.Since(r.renderState.GetOverlayMessageTime()) < overlayMessageDuration {
		r.drawOverlayMessage(screen)
	}
}

func (r *Renderer) drawImage(screen *ebiten.Image, s navigator.Snapshot) {
	if s.Bitmap == nil {
		return
	}
	img := r.texture(s.Bitmap)

	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear
	if s.Rect.Scale >= 2 {
		op.Filter = ebiten.FilterNearest
	}
	op.GeoM = imageGeoM(s.Bitmap.Width, s.Bitmap.Height, s.Rect)
	screen.DrawImage(img, op)
}

func (r *Renderer) drawError(screen *ebiten.Image, s navigator.Snapshot) {
	if !s.HasGallery() {
		// Open failed: there is no entry to show a placeholder for
		msg := "Cannot open"
		if s.Reason != failure.None {
			msg += ": " + s.Reason.Message()
		}
		r.drawCenteredMessage(screen, msg, colorLightRed)
		return
	}

	img := r.placeholder(s)
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(w-img.Bounds().Dx())/2, float64(h-img.Bounds().Dy())/2)
	screen.DrawImage(img, op)
}

func (r *Renderer) drawCenteredMessage(screen *ebiten.Image, message string, c color.RGBA) {
	f := r.font(r.renderState.GetFontSize())
	tw, th := text.Measure(message, f, 0)
	x := (float64(screen.Bounds().Dx()) - tw) / 2
	y := (float64(screen.Bounds().Dy()) - th) / 2
	DrawText(screen, message, f, x, y, c)
}

// buildInfoString is the status line: position, name, zoom, order and cache
func buildInfoString(s navigator.Snapshot) string {
	if !s.HasGallery() {
		return "0 / 0"
	}

	parts := []string{
		fmt.Sprintf("%d / %d", s.Index+1, s.Total),
		s.Entry.Name,
	}
	if s.Phase == navigator.Viewing && s.Bitmap != nil {
		parts = append(parts,
			fmt.Sprintf("%dx%d", s.Bitmap.Width, s.Bitmap.Height),
			fmt.Sprintf("%.0f%%", s.Rect.Scale*100))
		if s.View.Rotation != 0 {
			parts = append(parts, fmt.Sprintf("%d°", s.Rect.Rotation))
		}
	}
	order := "sort: " + s.Sort.String()
	if s.Wrap {
		order += ", wrap"
	}
	parts = append(parts, order)

	const mib = 1 << 20
	parts = append(parts, fmt.Sprintf("cache: %d, %.0f/%.0f MiB, hit %d miss %d",
		s.Cache.Entries, float64(s.Cache.Resident)/mib, float64(s.Cache.Budget)/mib,
		s.Cache.Hits, s.Cache.Misses))

	return strings.Join(parts, "  |  ")
}

func (r *Renderer) drawInfoDisplay(screen *ebiten.Image, s navigator.Snapshot) {
	infoFont := r.font(r.renderState.GetFontSize())
	infoText := buildInfoString(s)

	textWidth, textHeight := text.Measure(infoText, infoFont, 0)

	// Position at bottom right corner
	padding := 10.0
	textX := math.Max(padding, float64(screen.Bounds().Dx())-textWidth-padding)
	textY := float64(screen.Bounds().Dy()) - textHeight - padding

	bgPadding := 5.0
	DrawFilledRect(screen, textX-bgPadding, textY-bgPadding, textWidth+bgPadding*2, textHeight+bgPadding*2, bgColorLight)
	DrawText(screen, infoText, infoFont, textX, textY, colorWhite)
}

// helpLine is one row of the help overlay
type helpLine struct {
	action      string
	keys        string
	mouse       string
	description string
}

// helpLines lists bound actions in definition order
func (r *Renderer) helpLines() []helpLine {
	keybindings := r.renderState.GetKeybindings()
	mousebindings := r.renderState.GetMousebindings()

	var lines []helpLine
	for _, a := range config.Actions {
		keys := keybindings[a.Name]
		mouse := mousebindings[a.Name]
		if len(keys) == 0 && len(mouse) == 0 {
			continue
		}
		lines = append(lines, helpLine{
			action:      a.Name,
			keys:        strings.Join(keys, ", "),
			mouse:       strings.Join(mouse, ", "),
			description: a.Description,
		})
	}
	return lines
}

// inputText is the combined "keys | mouse" column
func (l helpLine) inputText() string {
	switch {
	case l.keys != "" && l.mouse != "":
		return l.keys + " | " + l.mouse
	case l.keys != "":
		return l.keys
	default:
		return l.mouse
	}
}

// helpLayout holds the measured columns of the help overlay
type helpLayout struct {
	actionWidth float64
	inputWidth  float64
	descWidth   float64
}

func measureHelp(lines []helpLine, f *text.GoTextFace) helpLayout {
	var l helpLayout
	for _, line := range lines {
		w, _ := text.Measure(line.action, f, 0)
		l.actionWidth = math.Max(l.actionWidth, w)
		w, _ = text.Measure(line.inputText(), f, 0)
		l.inputWidth = math.Max(l.inputWidth, w)
		w, _ = text.Measure(line.description, f, 0)
		l.descWidth = math.Max(l.descWidth, w)
	}
	return l
}

func (r *Renderer) drawHelpOverlay(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())

	padding := 40.0
	optimalFontSize, canFit := r.calculateOptimalFontSize(w-padding*2, h-padding*2)
	if !canFit {
		r.drawMarginTooSmallMessage(screen)
		return
	}

	lines := r.helpLines()
	configStatus := r.renderState.GetConfigStatus()

	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)
	DrawFilledRect(screen, padding, padding, w-padding*2, h-padding*2, bgColorMedium)

	helpFont := r.font(optimalFontSize)

	titleY := padding + 30
	DrawText(screen, "HELP:", helpFont, padding+20, titleY, colorWhite)

	currentY := titleY + optimalFontSize*2
	lineHeight := optimalFontSize * 1.5

	DrawText(screen, "Controls (Keyboard | Mouse):", helpFont, padding+20, currentY, colorWhite)
	currentY += lineHeight * 1.5

	layout := measureHelp(lines, helpFont)
	actionColumnX := padding + 40
	arrowColumnX := actionColumnX + layout.actionWidth + 20
	inputColumnX := arrowColumnX + 30
	descColumnX := inputColumnX + layout.inputWidth + 20

	sepWidth, _ := text.Measure(" | ", helpFont, 0)

	for _, line := range lines {
		DrawText(screen, line.action, helpFont, actionColumnX, currentY, colorLightBlue)
		DrawText(screen, "→", helpFont, arrowColumnX, currentY, colorWhite)

		x := inputColumnX
		if line.keys != "" {
			DrawText(screen, line.keys, helpFont, x, currentY, colorYellow)
			keysWidth, _ := text.Measure(line.keys, helpFont, 0)
			x += keysWidth
		}
		if line.keys != "" && line.mouse != "" {
			DrawText(screen, " | ", helpFont, x, currentY, colorWhite)
			x += sepWidth
		}
		if line.mouse != "" {
			DrawText(screen, line.mouse, helpFont, x, currentY, colorCyan)
		}

		DrawText(screen, line.description, helpFont, descColumnX, currentY, colorGray)
		currentY += lineHeight
	}

	currentY += lineHeight
	DrawText(screen, "System:", helpFont, padding+20, currentY, colorWhite)
	currentY += lineHeight

	statusColor := colorGreen
	if configStatus.Status == "Warning" || configStatus.Status == "Error" {
		statusColor = colorOrange
	}
	DrawText(screen, "Config Status: "+configStatus.Status, helpFont, padding+40, currentY, statusColor)
	currentY += lineHeight

	for i, warning := range configStatus.Warnings {
		if i >= 2 {
			break
		}
		DrawText(screen, "• "+truncate(warning, 50), helpFont, padding+40, currentY, colorLightRed)
		currentY += lineHeight
	}
}

// calculateRequiredDimensions returns the size the help content needs at fontSize
func (r *Renderer) calculateRequiredDimensions(fontSize float64) (float64, float64) {
	lines := r.helpLines()
	configStatus := r.renderState.GetConfigStatus()
	f := r.font(fontSize)

	padding := 40.0
	lineHeight := fontSize * 1.5

	warningLines := min(len(configStatus.Warnings), 2)

	height := padding*2 + fontSize*2 + lineHeight*1.5
	height += float64(len(lines)) * lineHeight
	height += lineHeight * 3 // spacing, "System:" and the status line
	height += float64(warningLines) * lineHeight

	layout := measureHelp(lines, f)
	width := 40 + layout.actionWidth + 20 + 30 + 20 + layout.inputWidth + 20 + layout.descWidth + padding

	for _, s := range []string{"HELP:", "Controls (Keyboard | Mouse):", "System:"} {
		w, _ := text.Measure(s, f, 0)
		width = math.Max(width, w+padding*2+40)
	}

	statusWidth, _ := text.Measure("Config Status: "+configStatus.Status, f, 0)
	width = math.Max(width, statusWidth+padding*2+80)
	for i := 0; i < warningLines; i++ {
		w, _ := text.Measure("• "+truncate(configStatus.Warnings[i], 50), f, 0)
		width = math.Max(width, w+padding*2+80)
	}

	return width, height
}

// calculateOptimalFontSize finds the largest font size that fits within the given dimensions
func (r *Renderer) calculateOptimalFontSize(availableWidth, availableHeight float64) (float64, bool) {
	maxFontSize := r.renderState.GetFontSize()
	minFontSize := 12.0

	minWidth, minHeight := r.calculateRequiredDimensions(minFontSize)
	if minWidth > availableWidth || minHeight > availableHeight {
		return minFontSize, false
	}

	maxWidth, maxHeight := r.calculateRequiredDimensions(maxFontSize)
	if maxWidth <= availableWidth && maxHeight <= availableHeight {
		return maxFontSize, true
	}

	// Binary search for optimal font size
	low, high := minFontSize, maxFontSize
	bestSize := minFontSize
	for high-low > 0.5 {
		mid := (low + high) / 2.0
		reqWidth, reqHeight := r.calculateRequiredDimensions(mid)
		if reqWidth <= availableWidth && reqHeight <= availableHeight {
			bestSize = mid
			low = mid
		} else {
			high = mid
		}
	}

	return bestSize, true
}

// drawMarginTooSmallMessage displays Fermat's margin joke when help cannot fit
func (r *Renderer) drawMarginTooSmallMessage(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)

	jokeFont := r.font(16.0)
	message := "Hanc marginis exiguitas non caperet."
	subtitle := "(This margin is too small to contain it.)"

	messageWidth, messageHeight := text.Measure(message, jokeFont, 0)
	subtitleWidth, _ := text.Measure(subtitle, jokeFont, 0)

	messageY := h/2 - messageHeight/2
	DrawText(screen, message, jokeFont, w/2-messageWidth/2, messageY, colorWhite)
	DrawText(screen, subtitle, jokeFont, w/2-subtitleWidth/2, messageY+messageHeight+10, colorGray)
}

func (r *Renderer) drawPageInputOverlay(screen *ebiten.Image, s navigator.Snapshot) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())

	inputFont := r.font(r.renderState.GetFontSize())
	rangeFont := r.font(r.renderState.GetFontSize() * 0.8)

	inputText := fmt.Sprintf("Go to image: %s_", r.renderState.GetPageInputBuffer())
	rangeText := fmt.Sprintf("(1-%d)", s.Total)

	inputWidth, inputHeight := text.Measure(inputText, inputFont, 0)
	rangeWidth, rangeHeight := text.Measure(rangeText, rangeFont, 0)

	padding := 20.0
	boxWidth := math.Max(inputWidth, rangeWidth) + padding*2
	boxHeight := inputHeight + rangeHeight + 10 + padding*2
	boxX := (w - boxWidth) / 2
	boxY := (h - boxHeight) / 2

	DrawFilledRect(screen, boxX, boxY, boxWidth, boxHeight, bgColorDark)
	DrawText(screen, inputText, inputFont, boxX+(boxWidth-inputWidth)/2, boxY+padding, colorWhite)
	DrawText(screen, rangeText, rangeFont, boxX+(boxWidth-rangeWidth)/2, boxY+padding+inputHeight+10, colorLightGray)
}

func (r *Renderer) drawOverlayMessage(screen *ebiten.Image) {
	messageFont := r.font(r.renderState.GetFontSize())
	message := r.renderState.GetOverlayMessage()

	textWidth, textHeight := text.Measure(message, messageFont, 0)

	padding := 20.0
	boxWidth := textWidth + padding*2
	boxHeight := textHeight + padding*2
	boxX := (float64(screen.Bounds().Dx()) - boxWidth) / 2
	boxY := (float64(screen.Bounds().Dy()) - boxHeight) / 2

	DrawFilledRect(screen, boxX, boxY, boxWidth, boxHeight, bgColorDark)
	DrawText(screen, message, messageFont, boxX+padding, boxY+padding, colorWhite)
}

// Release frees every cached texture
func (r *Renderer) Release() {
	r.textures.Purge()
	r.placeholders.Purge()
}
