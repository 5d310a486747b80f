// Package navigator is the single owner of "which image is on screen". It
// turns discrete commands (open, next, zoom, ...) into gallery lookups,
// cache requests and view-state changes, and exposes the result as a
// read-only Snapshot for the renderer.
//
// A Controller is not safe for concurrent use; drive it from one goroutine.
package navigator

import (
	"errors"
	"fmt"

	"peek/internal/cache"
	"peek/internal/decoder"
	"peek/internal/failure"
	"peek/internal/gallery"
	"peek/internal/logger"
	"peek/internal/view"
)

// Phase is the state of the controller
type Phase int

const (
	Idle Phase = iota
	Loading
	Viewing
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Loading:
		return "Loading"
	case Viewing:
		return "Viewing"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// NavigationDirection tells the prefetcher which neighbours matter most
type NavigationDirection int

const (
	NavigationForward NavigationDirection = iota
	NavigationBackward
	NavigationJump
)

// Indexer resolves paths into galleries
type Indexer interface {
	Open(path string) (*gallery.Gallery, int, error)
	SortMethod() gallery.SortMethod
	SetSortMethod(m gallery.SortMethod)
	Copy(e gallery.Entry, dstDir string) (string, error)
}

// Cache stores decode results
type Cache interface {
	Get(path string) decoder.Result
	RequestPrefetch(paths []string)
	CancelPrefetch(path string)
	InvalidateAll()
	SetCurrent(path string)
	Stats() cache.Stats
}

// Options configures navigation
type Options struct {
	// PrefetchRadius is how many neighbours on each side are decoded ahead
	PrefetchRadius int
	Wrap           bool
	ZoomStep       float64
}

// DefaultOptions prefetches two images each way without wrapping.
func DefaultOptions() Options {
	return Options{PrefetchRadius: 2, ZoomStep: 1.25}
}

// Snapshot is everything a renderer needs for one frame
type Snapshot struct {
	Phase   Phase
	Index   int
	Total   int
	Entry   gallery.Entry
	Bitmap  *decoder.Bitmap
	Reason  failure.Reason
	Message string
	Err     error
	View    view.State
	Rect    view.Rect
	Source  string
	Sort    gallery.SortMethod
	Wrap    bool
	Cache   cache.Stats
}

// HasGallery reports whether navigation commands can do anything
func (s Snapshot) HasGallery() bool {
	return s.Total > 0
}

// Controller is the navigation state machine
type Controller struct {
	indexer   Indexer
	cache     Cache
	transform *view.Transform
	opts      Options

	gallery  *gallery.Gallery
	index    int
	phase    Phase
	result   decoder.Result
	reason   failure.Reason
	err      error
	state    view.State
	viewport view.Size
	window   []string

	observer func(Snapshot)
}

// New creates an Idle controller.
func New(ix Indexer, c Cache, tr *view.Transform, opts Options) *Controller {
	if opts.PrefetchRadius < 0 {
		opts.PrefetchRadius = 0
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = DefaultOptions().ZoomStep
	}
	return &Controller{
		indexer:   ix,
		cache:     c,
		transform: tr,
		opts:      opts,
	}
}

// SetObserver registers fn to be called after every phase change, including
// the switch to Loading right before a blocking decode.
func (c *Controller) SetObserver(fn func(Snapshot)) {
	c.observer = fn
}

func (c *Controller) notify() {
	if c.observer != nil {
		c.observer(c.CurrentView())
	}
}

func (c *Controller) setPhase(p Phase) {
	if c.phase != p {
		logger.Debug("Navigator: %s -> %s", c.phase, p)
	}
	c.phase = p
}

// Phase returns the current phase
func (c *Controller) Phase() Phase {
	return c.phase
}

// Options returns the navigation options
func (c *Controller) Options() Options {
	return c.opts
}

// SetWrap toggles wraparound at the ends of the gallery
func (c *Controller) SetWrap(wrap bool) {
	c.opts.Wrap = wrap
}

// SetViewport tells the controller how large the drawing area is.
func (c *Controller) SetViewport(w, h int) {
	vp := view.Sz(w, h)
	if vp == c.viewport {
		return
	}
	c.viewport = vp
	if c.phase == Viewing {
		c.state = c.transform.Resize(c.state, c.viewport, c.imageSize())
	}
}

// Open replaces the gallery with the one path belongs to and shows path.
// On failure the controller is left in Error without a gallery and the
// error is returned.
func (c *Controller) Open(path string) error {
	g, idx, err := c.indexer.Open(path)

	c.cache.InvalidateAll()
	c.window = nil

	if err != nil {
		c.gallery = nil
		c.index = 0
		c.result = decoder.Result{}
		c.reason = failure.ReasonOf(err)
		c.err = err
		c.setPhase(Error)
		logger.WithFields(logger.Fields{"path": path, "reason": c.reason.String()}).Warnf("Cannot open: %v", err)
		c.notify()
		return err
	}

	c.gallery = g
	logger.WithFields(logger.Fields{"source": g.Source(), "count": g.Len(), "index": idx}).Info("Opened gallery")
	c.show(idx, NavigationJump)
	return nil
}

func (c *Controller) imageSize() view.Size {
	if c.result.Status != decoder.Decoded {
		return view.Size{}
	}
	return view.Sz(c.result.Bitmap.Width, c.result.Bitmap.Height)
}

// show makes idx current: Loading, then Viewing or Error.
func (c *Controller) show(idx int, dir NavigationDirection) {
	c.index = idx
	entry := c.gallery.At(idx)

	c.cache.SetCurrent(entry.Path)
	c.result = decoder.PendingResult()
	c.reason = failure.None
	c.err = nil
	c.setPhase(Loading)
	c.notify()

	res := c.cache.Get(entry.Path)
	c.result = res
	if res.Status == decoder.Decoded {
		c.state = c.transform.Reset(c.viewport, c.imageSize(), c.state)
		c.setPhase(Viewing)
	} else {
		c.reason = res.Reason
		c.err = res.Err
		c.setPhase(Error)
		logger.WithFields(logger.Fields{
			"path":   entry.Path,
			"index":  idx,
			"reason": res.Reason.String(),
		}).Warnf("Cannot show image: %v", res.Err)
	}

	c.updatePrefetch(dir)
	c.notify()
}

// neighbours lists the paths within PrefetchRadius of the current index,
// nearest first, favouring the direction of travel.
func (c *Controller) neighbours(dir NavigationDirection) []string {
	n := c.gallery.Len()
	seen := map[int]bool{c.index: true}
	var paths []string

	add := func(i int) {
		if c.opts.Wrap {
			i = ((i % n) + n) % n
		} else if i < 0 || i >= n {
			return
		}
		if seen[i] {
			return
		}
		seen[i] = true
		paths = append(paths, c.gallery.At(i).Path)
	}

	for d := 1; d <= c.opts.PrefetchRadius; d++ {
		if dir == NavigationBackward {
			add(c.index - d)
			add(c.index + d)
		} else {
			add(c.index + d)
			add(c.index - d)
		}
	}
	return paths
}

func (c *Controller) updatePrefetch(dir NavigationDirection) {
	next := c.neighbours(dir)
	keep := make(map[string]bool, len(next))
	for _, p := range next {
		keep[p] = true
	}
	for _, p := range c.window {
		if !keep[p] {
			c.cache.CancelPrefetch(p)
		}
	}
	c.window = next
	if len(next) > 0 {
		c.cache.RequestPrefetch(next)
	}
}

func (c *Controller) hasGallery() bool {
	return c.gallery != nil && c.gallery.Len() > 0
}

func (c *Controller) move(delta int, dir NavigationDirection) {
	if !c.hasGallery() {
		return
	}
	n := c.gallery.Len()
	idx := c.index + delta
	if c.opts.Wrap {
		idx = ((idx % n) + n) % n
	} else {
		idx = max(0, min(idx, n-1))
	}
	if idx == c.index {
		return
	}
	c.show(idx, dir)
}

// Next shows the following image. At the last image it stays put unless
// wrapping is enabled.
func (c *Controller) Next() {
	c.move(1, NavigationForward)
}

// Previous shows the preceding image
func (c *Controller) Previous() {
	c.move(-1, NavigationBackward)
}

// JumpToFirst shows the first image
func (c *Controller) JumpToFirst() {
	c.JumpTo(0)
}

// JumpToLast shows the last image
func (c *Controller) JumpToLast() {
	if c.hasGallery() {
		c.JumpTo(c.gallery.Len() - 1)
	}
}

// JumpTo shows the image at index i. Out-of-range indices are ignored.
func (c *Controller) JumpTo(i int) {
	if !c.hasGallery() || i < 0 || i >= c.gallery.Len() || i == c.index {
		return
	}
	c.show(i, NavigationJump)
}

// Zoom scales the view by factor around anchor. Only valid while Viewing.
func (c *Controller) Zoom(factor float64, anchor view.Point) {
	if c.phase != Viewing {
		return
	}
	c.state = c.transform.Zoom(c.state, c.viewport, c.imageSize(), factor, anchor)
}

func (c *Controller) center() view.Point {
	return view.Point{X: c.viewport.W / 2, Y: c.viewport.H / 2}
}

// ZoomIn zooms by one step around the viewport centre
func (c *Controller) ZoomIn() {
	c.Zoom(c.opts.ZoomStep, c.center())
}

// ZoomOut zooms out by one step around the viewport centre
func (c *Controller) ZoomOut() {
	c.Zoom(1/c.opts.ZoomStep, c.center())
}

// ZoomActual shows the image at 100%
func (c *Controller) ZoomActual() {
	if c.phase != Viewing {
		return
	}
	c.state = c.transform.Actual(c.state, c.viewport, c.imageSize())
}

// ZoomFit goes back to fit-to-window, keeping the rotation
func (c *Controller) ZoomFit() {
	if c.phase != Viewing {
		return
	}
	c.state = c.transform.Fit(c.state, c.viewport, c.imageSize())
}

// Pan moves the image by delta screen pixels
func (c *Controller) Pan(delta view.Point) {
	if c.phase != Viewing {
		return
	}
	c.state = c.transform.Pan(c.state, c.viewport, c.imageSize(), delta)
}

// Rotate turns the image by quarterTurns x 90 degrees
func (c *Controller) Rotate(quarterTurns int) {
	if c.phase != Viewing {
		return
	}
	c.state = c.transform.Rotate(c.state, c.viewport, c.imageSize(), quarterTurns)
}

// CycleSort switches to the next sort order and rebuilds the gallery,
// keeping the current image selected. Decoded images stay cached since the
// gallery still covers the same files.
func (c *Controller) CycleSort() error {
	prev := c.indexer.SortMethod()
	next := prev.Next()
	c.indexer.SetSortMethod(next)
	if !c.hasGallery() {
		return nil
	}

	current := c.gallery.At(c.index).Path
	g, idx, err := c.indexer.Open(current)
	if err != nil {
		c.indexer.SetSortMethod(prev)
		return fmt.Errorf("re-sorting gallery: %w", err)
	}
	c.gallery = g
	c.index = idx
	logger.Info("Sort order: %s", next)
	c.updatePrefetch(NavigationJump)
	c.notify()
	return nil
}

// CopyCurrentTo copies the current image into dir and returns the new path.
func (c *Controller) CopyCurrentTo(dir string) (string, error) {
	if !c.hasGallery() {
		return "", errors.New("no image to copy")
	}
	return c.indexer.Copy(c.gallery.At(c.index), dir)
}

// CurrentView returns a snapshot for rendering.
func (c *Controller) CurrentView() Snapshot {
	s := Snapshot{
		Phase:  c.phase,
		Reason: c.reason,
		Err:    c.err,
		View:   c.state,
		Sort:   c.indexer.SortMethod(),
		Wrap:   c.opts.Wrap,
		Cache:  c.cache.Stats(),
	}
	if c.reason != failure.None {
		s.Message = c.reason.Message()
	}
	if c.hasGallery() {
		s.Index = c.index
		s.Total = c.gallery.Len()
		s.Entry = c.gallery.At(c.index)
		s.Source = c.gallery.Source()
	}
	if c.phase == Viewing {
		s.Bitmap = c.result.Bitmap
		s.Rect = c.transform.Rect(c.state, c.viewport, c.imageSize())
	}
	return s
}
