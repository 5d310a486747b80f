// Package decoder turns the raw bytes of one file into a bitmap or a typed
// failure. Formats are chosen by content signature first and by file
// extension only when no signature matches.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"peek/internal/failure"
)

// Status is the tag of a Result
type Status int

const (
	Pending Status = iota
	Decoded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Decoded:
		return "Decoded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Bitmap is a decoded image. Once stored in the cache it is never mutated
// and may be read from any goroutine.
type Bitmap struct {
	Image  image.Image
	Width  int
	Height int
	Format string
}

// Bytes estimates the resident size of the pixel buffer
func (b *Bitmap) Bytes() int64 {
	if b == nil || b.Image == nil {
		return 0
	}
	switch img := b.Image.(type) {
	case *image.RGBA:
		return int64(len(img.Pix))
	case *image.NRGBA:
		return int64(len(img.Pix))
	case *image.RGBA64:
		return int64(len(img.Pix))
	case *image.NRGBA64:
		return int64(len(img.Pix))
	case *image.Gray:
		return int64(len(img.Pix))
	case *image.Gray16:
		return int64(len(img.Pix))
	case *image.CMYK:
		return int64(len(img.Pix))
	case *image.YCbCr:
		return int64(len(img.Y) + len(img.Cb) + len(img.Cr))
	case *image.Paletted:
		return int64(len(img.Pix) + 4*len(img.Palette))
	default:
		return int64(b.Width) * int64(b.Height) * 4
	}
}

// Result is the outcome of decoding one path: Decoded with a Bitmap, Failed
// with a Reason, or Pending while a decode is in flight.
type Result struct {
	Status Status
	Bitmap *Bitmap
	Reason failure.Reason
	Err    error
}

// Size is the number of bytes this result keeps resident
func (r Result) Size() int64 {
	if r.Status != Decoded {
		return 0
	}
	return r.Bitmap.Bytes()
}

// PendingResult is the placeholder for a decode that has not finished.
func PendingResult() Result {
	return Result{Status: Pending}
}

// Success wraps an already decoded image.
func Success(img image.Image, format string) Result {
	b := img.Bounds()
	return Result{
		Status: Decoded,
		Bitmap: &Bitmap{Image: img, Width: b.Dx(), Height: b.Dy(), Format: format},
	}
}

// Fail builds a Failed result.
func Fail(reason failure.Reason, path string, err error) Result {
	return Result{Status: Failed, Reason: reason, Err: failure.New(reason, path, err)}
}

// ReadFunc loads the bytes behind a path
type ReadFunc func(path string) ([]byte, error)

// Decoder decodes files. It holds no mutable state and is safe for
// concurrent use.
type Decoder struct {
	formats   []Format
	read      ReadFunc
	maxPixels int64
}

// Option configures a Decoder
type Option func(*Decoder)

// WithFormats replaces the default format list
func WithFormats(formats []Format) Option {
	return func(d *Decoder) { d.formats = formats }
}

// WithReader replaces how paths are read, e.g. to reach archive entries.
func WithReader(read ReadFunc) Option {
	return func(d *Decoder) { d.read = read }
}

// WithMaxPixels rejects images whose header declares more pixels than n.
// Zero disables the check.
func WithMaxPixels(n int64) Option {
	return func(d *Decoder) { d.maxPixels = n }
}

// New creates a Decoder reading from fs.
func New(fs afero.Fs, opts ...Option) *Decoder {
	d := &Decoder{
		formats: DefaultFormats(),
		read: func(path string) ([]byte, error) {
			return afero.ReadFile(fs, path)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Formats returns the formats this decoder dispatches to
func (d *Decoder) Formats() []Format {
	return d.formats
}

// Decode reads and decodes path. It never panics; every failure comes back
// as a Failed result.
func (d *Decoder) Decode(path string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail(failure.CorruptData, path, fmt.Errorf("decoder panic: %v", r))
		}
	}()

	data, err := d.read(path)
	if err != nil {
		return Fail(failure.FileUnreadable, path, err)
	}
	if len(data) == 0 {
		return Fail(failure.Truncated, path, io.ErrUnexpectedEOF)
	}

	format, ok := sniff(d.formats, data)
	if !ok {
		format, ok = byExtension(d.formats, path)
	}
	if !ok {
		return Fail(failure.UnsupportedFormat, path, image.ErrFormat)
	}

	if d.maxPixels > 0 && format.DecodeConfig != nil {
		cfg, err := format.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Fail(classify(err), path, fmt.Errorf("reading %s header: %w", format.Name, err))
		}
		if int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
			return Fail(failure.CorruptData, path,
				fmt.Errorf("%dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, d.maxPixels))
		}
	}

	img, err := format.Decode(bytes.NewReader(data))
	if err != nil {
		return Fail(classify(err), path, fmt.Errorf("decoding %s: %w", format.Name, err))
	}
	return Success(img, format.Name)
}

// classify maps a codec error onto the failure taxonomy.
func classify(err error) failure.Reason {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return failure.Truncated
	}
	if errors.Is(err, image.ErrFormat) || errors.Is(err, bmp.ErrUnsupported) {
		return failure.UnsupportedFormat
	}

	var pngUnsupported png.UnsupportedError
	var jpegUnsupported jpeg.UnsupportedError
	var tiffUnsupported tiff.UnsupportedError
	if errors.As(err, &pngUnsupported) || errors.As(err, &jpegUnsupported) || errors.As(err, &tiffUnsupported) {
		return failure.UnsupportedFormat
	}

	// gif and webp flatten io errors into their messages, png reports a
	// short IDAT stream as a format error
	msg := err.Error()
	if strings.Contains(msg, "unexpected EOF") || strings.Contains(msg, "not enough pixel data") {
		return failure.Truncated
	}
	return failure.CorruptData
}
