// Package gallery builds the ordered list of images a viewer pages through:
// the supported files of one directory, or the image entries of one archive.
package gallery

import (
	"strings"
	"time"
)

// ArchiveSeparator joins an archive path and the entry inside it.
const ArchiveSeparator = "::"

// Entry is one image of a Gallery. Entries are immutable.
type Entry struct {
	Path    string // file path, or <archive>::<entry> for archive members
	Name    string // base name, or the entry path inside the archive
	ModTime time.Time
	Archive string
	Inner   string
}

// SplitArchivePath splits <archive>::<entry> at the first separator that
// follows an archive name. ok is false for plain paths, including file
// names that merely contain the separator.
func SplitArchivePath(path string) (archive, inner string, ok bool) {
	for off := 0; ; {
		i := strings.Index(path[off:], ArchiveSeparator)
		if i < 0 {
			return "", "", false
		}
		i += off
		if IsArchive(path[:i]) {
			return path[:i], path[i+len(ArchiveSeparator):], true
		}
		off = i + len(ArchiveSeparator)
	}
}

// JoinArchivePath is the inverse of SplitArchivePath
func JoinArchivePath(archive, inner string) string {
	return archive + ArchiveSeparator + inner
}

// Gallery is the fixed, ordered image sequence of one directory or archive.
// The order never changes after construction; re-open to refresh.
type Gallery struct {
	source  string
	method  SortMethod
	entries []Entry
	index   map[string]int
}

func newGallery(source string, method SortMethod, entries []Entry) *Gallery {
	g := &Gallery{
		source:  source,
		method:  method,
		entries: entries,
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		g.index[e.Path] = i
	}
	return g
}

// Source is the directory or archive the gallery was built from
func (g *Gallery) Source() string {
	return g.source
}

// SortMethod is the order the entries were sorted in
func (g *Gallery) SortMethod() SortMethod {
	return g.method
}

func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// At returns the entry at i. It panics when i is out of range, like a slice.
func (g *Gallery) At(i int) Entry {
	return g.entries[i]
}

// IndexOf returns the position of path, or -1.
func (g *Gallery) IndexOf(path string) int {
	if g == nil {
		return -1
	}
	if i, ok := g.index[path]; ok {
		return i
	}
	return -1
}

// Paths returns the entry paths in gallery order
func (g *Gallery) Paths() []string {
	paths := make([]string, len(g.entries))
	for i, e := range g.entries {
		paths[i] = e.Path
	}
	return paths
}
