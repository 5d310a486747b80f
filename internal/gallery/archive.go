package gallery

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
	"github.com/spf13/afero"
)

// IsArchive reports whether path names an archive the indexer can open
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".cbz", ".rar", ".cbr", ".7z":
		return true
	default:
		return false
	}
}

func openSized(fs afero.Fs, path string) (afero.File, int64, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// listArchive returns the image members of an archive in stored order.
func listArchive(fs afero.Fs, archivePath string, match func(string) bool) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip", ".cbz":
		return listZip(fs, archivePath, match)
	case ".rar", ".cbr":
		return listRar(fs, archivePath, match)
	case ".7z":
		return list7z(fs, archivePath, match)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}
}

func archiveEntry(archivePath, inner string) Entry {
	return Entry{
		Path:    JoinArchivePath(archivePath, inner),
		Name:    inner,
		Archive: archivePath,
		Inner:   inner,
	}
}

func listZip(fs afero.Fs, archivePath string, match func(string) bool) ([]Entry, error) {
	f, size, err := openSized(fs, archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := zip.NewReader(f, size)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() || !match(zf.Name) {
			continue
		}
		e := archiveEntry(archivePath, zf.Name)
		e.ModTime = zf.Modified
		entries = append(entries, e)
	}
	return entries, nil
}

func listRar(fs afero.Fs, archivePath string, match func(string) bool) ([]Entry, error) {
	f, err := fs.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.IsDir || !match(header.Name) {
			continue
		}
		e := archiveEntry(archivePath, header.Name)
		e.ModTime = header.ModificationTime
		entries = append(entries, e)
	}
	return entries, nil
}

func list7z(fs afero.Fs, archivePath string, match func(string) bool) ([]Entry, error) {
	f, size, err := openSized(fs, archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := sevenzip.NewReader(f, size)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, sf := range r.File {
		if sf.FileInfo().IsDir() || !match(sf.Name) {
			continue
		}
		e := archiveEntry(archivePath, sf.Name)
		e.ModTime = sf.Modified
		entries = append(entries, e)
	}
	return entries, nil
}

// readArchiveEntry loads one member of an archive into memory.
func readArchiveEntry(fs afero.Fs, archivePath, inner string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip", ".cbz":
		f, size, err := openSized(fs, archivePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r, err := zip.NewReader(f, size)
		if err != nil {
			return nil, err
		}
		for _, zf := range r.File {
			if zf.Name == inner {
				return readAll(zf.Open())
			}
		}

	case ".rar", ".cbr":
		f, err := fs.Open(archivePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r, err := rardecode.NewReader(f, "")
		if err != nil {
			return nil, err
		}
		for {
			header, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if header.Name == inner {
				return io.ReadAll(r)
			}
		}

	case ".7z":
		f, size, err := openSized(fs, archivePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r, err := sevenzip.NewReader(f, size)
		if err != nil {
			return nil, err
		}
		for _, sf := range r.File {
			if sf.Name == inner {
				return readAll(sf.Open())
			}
		}

	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}
	return nil, fmt.Errorf("entry %s not found in %s: %w", inner, archivePath, os.ErrNotExist)
}

func readAll(rc io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
