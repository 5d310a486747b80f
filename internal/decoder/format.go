package decoder

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Format describes one decodable image format. Magic signatures use '?' as a
// single-byte wildcard, the same convention as image.RegisterFormat.
type Format struct {
	Name         string
	Extensions   []string
	Magic        []string
	Decode       func(io.Reader) (image.Image, error)
	DecodeConfig func(io.Reader) (image.Config, error)
}

// DefaultFormats returns every format the viewer understands.
func DefaultFormats() []Format {
	return []Format{
		{
			Name:         "png",
			Extensions:   []string{".png"},
			Magic:        []string{"\x89PNG\r\n\x1a\n"},
			Decode:       png.Decode,
			DecodeConfig: png.DecodeConfig,
		},
		{
			Name:         "jpeg",
			Extensions:   []string{".jpg", ".jpeg", ".jpe", ".jfif"},
			Magic:        []string{"\xff\xd8"},
			Decode:       func(r io.Reader) (image.Image, error) { return jpeg.Decode(r) },
			DecodeConfig: jpeg.DecodeConfig,
		},
		{
			Name:         "gif",
			Extensions:   []string{".gif"},
			Magic:        []string{"GIF87a", "GIF89a"},
			Decode:       gif.Decode,
			DecodeConfig: gif.DecodeConfig,
		},
		{
			Name:         "bmp",
			Extensions:   []string{".bmp", ".dib"},
			Magic:        []string{"BM????\x00\x00\x00\x00"},
			Decode:       bmp.Decode,
			DecodeConfig: bmp.DecodeConfig,
		},
		{
			Name:         "webp",
			Extensions:   []string{".webp"},
			Magic:        []string{"RIFF????WEBPVP8"},
			Decode:       webp.Decode,
			DecodeConfig: webp.DecodeConfig,
		},
		{
			Name:         "tiff",
			Extensions:   []string{".tif", ".tiff"},
			Magic:        []string{"II*\x00", "MM\x00*"},
			Decode:       tiff.Decode,
			DecodeConfig: tiff.DecodeConfig,
		},
		{
			Name:         "qoi",
			Extensions:   []string{".qoi"},
			Magic:        []string{"qoif"},
			Decode:       qoi.Decode,
			DecodeConfig: qoi.DecodeConfig,
		},
	}
}

func matchMagic(magic string, data []byte) bool {
	if len(data) < len(magic) {
		return false
	}
	for i := 0; i < len(magic); i++ {
		if magic[i] != '?' && magic[i] != data[i] {
			return false
		}
	}
	return true
}

// sniff picks a format by content signature.
func sniff(formats []Format, data []byte) (Format, bool) {
	for _, f := range formats {
		for _, m := range f.Magic {
			if matchMagic(m, data) {
				return f, true
			}
		}
	}
	return Format{}, false
}

// byExtension picks a format from the file name, ignoring case.
func byExtension(formats []Format, path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Format{}, false
	}
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return Format{}, false
}

// Extensions lists every extension of the given formats as glob patterns,
// suitable for the gallery's supported-format matcher.
func Extensions(formats []Format) []string {
	var patterns []string
	for _, f := range formats {
		for _, e := range f.Extensions {
			patterns = append(patterns, "*"+e)
		}
	}
	return patterns
}
