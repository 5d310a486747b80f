package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"peek/internal/failure"
	"peek/internal/logger"
)

// Indexer lists and orders images. It keeps no state between calls besides
// its configuration.
type Indexer struct {
	fs       afero.Fs
	matcher  *Matcher
	strategy SortStrategy
	archives bool
}

// IndexerOption configures an Indexer
type IndexerOption func(*Indexer)

// WithSortMethod picks the initial order. Natural is the default.
func WithSortMethod(m SortMethod) IndexerOption {
	return func(ix *Indexer) { ix.strategy = GetSortStrategy(m) }
}

// WithArchives enables or disables opening archives as galleries.
func WithArchives(enabled bool) IndexerOption {
	return func(ix *Indexer) { ix.archives = enabled }
}

// NewIndexer creates an indexer for files matching patterns.
func NewIndexer(fs afero.Fs, patterns []string, opts ...IndexerOption) (*Indexer, error) {
	m, err := NewMatcher(patterns)
	if err != nil {
		return nil, err
	}
	ix := &Indexer{
		fs:       fs,
		matcher:  m,
		strategy: &NaturalSortStrategy{},
		archives: true,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// SortMethod returns the current order
func (ix *Indexer) SortMethod() SortMethod {
	return ix.strategy.Method()
}

// SetSortMethod changes the order used by later Build and Open calls.
func (ix *Indexer) SetSortMethod(m SortMethod) {
	ix.strategy = GetSortStrategy(m)
}

// listDir returns the matching regular files directly inside dir.
func (ix *Indexer) listDir(dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(ix.fs, dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, info := range infos {
		if info.IsDir() || !ix.matcher.Match(info.Name()) {
			continue
		}
		entries = append(entries, Entry{
			Path:    filepath.Join(dir, info.Name()),
			Name:    info.Name(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Build indexes the supported files directly inside dir. Subdirectories
// and archives are skipped.
func (ix *Indexer) Build(dir string) (*Gallery, error) {
	dir = filepath.Clean(dir)
	entries, err := ix.listDir(dir)
	if err != nil {
		return nil, failure.New(failure.DirectoryUnreadable, dir, err)
	}
	if len(entries) == 0 {
		return nil, failure.New(failure.EmptyGallery, dir, nil)
	}
	logger.WithFields(logger.Fields{"dir": dir, "count": len(entries), "sort": ix.strategy.Name()}).Debug("Indexed directory")
	return newGallery(dir, ix.strategy.Method(), ix.strategy.Sort(entries)), nil
}

// BuildArchive indexes the image members of an archive.
func (ix *Indexer) BuildArchive(archivePath string) (*Gallery, error) {
	archivePath = filepath.Clean(archivePath)
	entries, err := listArchive(ix.fs, archivePath, ix.matcher.Match)
	if err != nil {
		return nil, failure.New(failure.DirectoryUnreadable, archivePath, err)
	}
	if len(entries) == 0 {
		return nil, failure.New(failure.EmptyGallery, archivePath, nil)
	}
	logger.WithFields(logger.Fields{"archive": archivePath, "count": len(entries), "sort": ix.strategy.Name()}).Debug("Indexed archive")
	return newGallery(archivePath, ix.strategy.Method(), ix.strategy.Sort(entries)), nil
}

// Open resolves what the user asked to view into a gallery and a starting
// index. A directory or archive starts at 0. A file opens its directory and
// starts at that file, which is always part of the gallery even when its
// extension is not in the pattern list. An <archive>::<entry> path opens the
// archive at that entry.
func (ix *Indexer) Open(path string) (*Gallery, int, error) {
	if archive, inner, ok := SplitArchivePath(path); ok {
		g, err := ix.BuildArchive(archive)
		if err != nil {
			return nil, 0, err
		}
		return g, max(g.IndexOf(JoinArchivePath(g.Source(), inner)), 0), nil
	}

	path = filepath.Clean(path)
	info, err := ix.fs.Stat(path)
	if err != nil {
		return nil, 0, failure.New(failure.DirectoryUnreadable, path, err)
	}

	if info.IsDir() {
		g, err := ix.Build(path)
		return g, 0, err
	}
	if ix.archives && IsArchive(path) {
		g, err := ix.BuildArchive(path)
		return g, 0, err
	}

	dir := filepath.Dir(path)
	entries, err := ix.listDir(dir)
	if err != nil {
		return nil, 0, failure.New(failure.DirectoryUnreadable, dir, err)
	}
	found := false
	for _, e := range entries {
		if e.Path == path {
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, Entry{Path: path, Name: info.Name(), ModTime: info.ModTime()})
	}

	g := newGallery(dir, ix.strategy.Method(), ix.strategy.Sort(entries))
	logger.WithFields(logger.Fields{"dir": dir, "count": g.Len(), "sort": ix.strategy.Name()}).Debug("Indexed directory")
	return g, max(g.IndexOf(path), 0), nil
}

// ReadFile loads the bytes behind a gallery path, reaching into archives for
// <archive>::<entry> paths. It has the shape the decoder expects.
func (ix *Indexer) ReadFile(path string) ([]byte, error) {
	if archive, inner, ok := SplitArchivePath(path); ok {
		return readArchiveEntry(ix.fs, archive, inner)
	}
	return afero.ReadFile(ix.fs, path)
}

// Copy writes the bytes of e into dstDir and returns the new path. An
// existing file is never overwritten: name.ext becomes name-1.ext,
// name-2.ext and so on.
func (ix *Indexer) Copy(e Entry, dstDir string) (string, error) {
	data, err := ix.ReadFile(e.Path)
	if err != nil {
		return "", failure.New(failure.FileUnreadable, e.Path, err)
	}
	if err := ix.fs.MkdirAll(dstDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dstDir, err)
	}

	dst, err := uniquePath(ix.fs, dstDir, filepath.Base(e.Name))
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(ix.fs, dst, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", dst, err)
	}
	logger.WithFields(logger.Fields{"src": e.Path, "dst": dst}).Info("Copied image")
	return dst, nil
}

func uniquePath(fs afero.Fs, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for n := 1; ; n++ {
		_, err := fs.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
}
