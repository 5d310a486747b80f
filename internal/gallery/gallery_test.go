package gallery

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peek/internal/failure"
)

var testPatterns = []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.qoi"}

func writeFiles(t *testing.T, fs afero.Fs, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(name), 0644))
	}
}

func names(g *Gallery) []string {
	out := make([]string, g.Len())
	for i := 0; i < g.Len(); i++ {
		out[i] = g.At(i).Name
	}
	return out
}

func newTestIndexer(t *testing.T, fs afero.Fs, opts ...IndexerOption) *Indexer {
	t.Helper()
	ix, err := NewIndexer(fs, testPatterns, opts...)
	require.NoError(t, err)
	return ix
}

func TestBuildNaturalOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/pics", "img10.png", "img2.png", "IMG3.PNG", "img1.png", "notes.txt")
	require.NoError(t, fs.MkdirAll("/pics/sub.png", 0755))

	g, err := newTestIndexer(t, fs).Build("/pics")
	require.NoError(t, err)
	assert.Equal(t, []string{"img1.png", "img2.png", "IMG3.PNG", "img10.png"}, names(g))
	assert.Equal(t, "/pics", g.Source())
	assert.Equal(t, SortNatural, g.SortMethod())
}

func TestBuildErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/empty", "readme.txt")
	ix := newTestIndexer(t, fs)

	_, err := ix.Build("/missing")
	assert.True(t, errors.Is(err, failure.ErrDirectoryUnreadable))
	assert.Equal(t, failure.DirectoryUnreadable, failure.ReasonOf(err))

	_, err = ix.Build("/empty")
	assert.True(t, errors.Is(err, failure.ErrEmptyGallery))
}

func TestBuildIsNotCached(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/pics", "a.png")
	ix := newTestIndexer(t, fs)

	g1, err := ix.Build("/pics")
	require.NoError(t, err)
	writeFiles(t, fs, "/pics", "b.png")
	g2, err := ix.Build("/pics")
	require.NoError(t, err)

	assert.Equal(t, 1, g1.Len())
	assert.Equal(t, 2, g2.Len())
}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/pics", "a.png", "b.png", "c.png", "mystery.dat")
	ix := newTestIndexer(t, fs)

	tests := []struct {
		name      string
		path      string
		wantIndex int
		wantLen   int
	}{
		{"Directory", "/pics", 0, 3},
		{"File in the middle", "/pics/b.png", 1, 3},
		{"Unclean path", "/pics/./c.png", 2, 3},
		{"Unmatched extension is still included", "/pics/mystery.dat", 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, idx, err := ix.Open(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantLen, g.Len())
		})
	}

	_, _, err := ix.Open("/nowhere/x.png")
	assert.Equal(t, failure.DirectoryUnreadable, failure.ReasonOf(err))
}

func TestOpenSoleUnsupportedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/only", "picture.heic")

	g, idx, err := newTestIndexer(t, fs).Open("/only/picture.heic")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{"picture.heic"}, names(g))
}

func TestSortStrategies(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Path: "/d/b10.png", Name: "b10.png", ModTime: base.Add(2 * time.Hour)},
		{Path: "/d/B2.png", Name: "B2.png", ModTime: base},
		{Path: "/d/a.png", Name: "a.png", ModTime: base.Add(time.Hour)},
		{Path: "/d/b1.png", Name: "b1.png", ModTime: base},
	}
	namesOf := func(es []Entry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.Name)
		}
		return out
	}

	tests := []struct {
		method SortMethod
		want   []string
	}{
		{SortNatural, []string{"a.png", "b1.png", "B2.png", "b10.png"}},
		{SortSimple, []string{"a.png", "b1.png", "b10.png", "B2.png"}},
		{SortModTime, []string{"b10.png", "a.png", "b1.png", "B2.png"}},
		{SortEntryOrder, []string{"b10.png", "B2.png", "a.png", "b1.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			strategy := GetSortStrategy(tt.method)
			assert.Equal(t, tt.method, strategy.Method())
			got := strategy.Sort(entries)
			assert.Equal(t, tt.want, namesOf(got))
		})
	}

	assert.Equal(t, "b10.png", entries[0].Name, "input must not be reordered")
}

func TestRandomSort(t *testing.T) {
	var entries []Entry
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("p%02d.png", i)
		entries = append(entries, Entry{Path: "/d/" + name, Name: name})
	}
	want := (&NaturalSortStrategy{}).Sort(entries)

	seeded := &RandomSortStrategy{Seed: 42}
	first := seeded.Sort(entries)
	assert.Equal(t, first, seeded.Sort(entries), "same seed, same order")
	assert.ElementsMatch(t, want, first)
	assert.NotEqual(t, want, first)

	reversed := append([]Entry(nil), entries...)
	slices.Reverse(reversed)
	assert.Equal(t, first, seeded.Sort(reversed), "input order does not matter")

	assert.Equal(t, SortRandom, GetSortStrategy(SortRandom).Method())
}

func TestRandomGalleryOrderIsFixed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d", "a.png", "b.png", "c.png", "d.png", "e.png", "f.png")
	ix := newTestIndexer(t, fs, WithSortMethod(SortRandom))

	g, err := ix.Build("/d")
	require.NoError(t, err)
	assert.Equal(t, SortRandom, g.SortMethod())
	order := g.Paths()
	assert.Len(t, order, 6)
	for i, p := range order {
		assert.Equal(t, i, g.IndexOf(p))
		assert.Equal(t, p, g.At(i).Path)
	}
	assert.Equal(t, order, g.Paths())
}

func TestNaturalSortUnicodeNormalization(t *testing.T) {
	// decomposed and precomposed forms of the same letter
	entries := []Entry{
		{Name: "e\u0301te2.png"},
		{Name: "\u00e9te1.png"},
	}
	got := (&NaturalSortStrategy{}).Sort(entries)
	assert.Equal(t, "\u00e9te1.png", got[0].Name)
}

func TestSortMethodParsing(t *testing.T) {
	for i, name := range SortMethodNames() {
		m, err := ParseSortMethod(name)
		require.NoError(t, err)
		assert.Equal(t, SortMethod(i), m)
		assert.Equal(t, name, m.String())
	}
	_, err := ParseSortMethod("shuffle")
	assert.Error(t, err)

	assert.Equal(t, SortSimple, SortNatural.Next())
	assert.Equal(t, SortRandom, SortEntryOrder.Next())
	assert.Equal(t, SortNatural, SortRandom.Next())
}

func TestSetSortMethodRebuilds(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d", "x10.png", "x9.png")
	ix := newTestIndexer(t, fs, WithSortMethod(SortSimple))

	g, err := ix.Build("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"x10.png", "x9.png"}, names(g))

	ix.SetSortMethod(SortNatural)
	g, err = ix.Build("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"x9.png", "x10.png"}, names(g))
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"*.PNG", " *.jpg ", ""})
	require.NoError(t, err)

	tests := []struct {
		name string
		want bool
	}{
		{"a.png", true},
		{"A.PNG", true},
		{"photo.Jpg", true},
		{"photo.jpeg", false},
		{"png", false},
		{"archive.zip", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.name))
		})
	}
	assert.Equal(t, []string{"*.png", "*.jpg"}, m.Patterns())

	_, err = NewMatcher(nil)
	assert.Error(t, err)
	_, err = NewMatcher([]string{"*.{png,jpg}"})
	assert.Error(t, err)
}

func writeZip(t *testing.T, fs afero.Fs, path string, files map[string]string, order []string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func TestArchiveGallery(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"ch1/p10.png": "ten",
		"ch1/p2.png":  "two",
		"ch1/":        "",
		"readme.txt":  "hi",
	}
	writeZip(t, fs, "/books/comic.zip", files, []string{"ch1/", "ch1/p10.png", "readme.txt", "ch1/p2.png"})
	ix := newTestIndexer(t, fs)

	g, idx, err := ix.Open("/books/comic.zip")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{"ch1/p2.png", "ch1/p10.png"}, names(g))

	e := g.At(1)
	assert.Equal(t, "/books/comic.zip", e.Archive)
	assert.Equal(t, "ch1/p10.png", e.Inner)
	assert.Equal(t, "/books/comic.zip::ch1/p10.png", e.Path)

	data, err := ix.ReadFile(e.Path)
	require.NoError(t, err)
	assert.Equal(t, "ten", string(data))

	_, err = ix.ReadFile("/books/comic.zip::ch1/missing.png")
	assert.Error(t, err)

	g2, idx, err := ix.Open(e.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, g.Paths(), g2.Paths())
}

func TestArchivesDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/b/c.zip", map[string]string{"a.png": "a"}, []string{"a.png"})

	g, idx, err := newTestIndexer(t, fs, WithArchives(false)).Open("/b/c.zip")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{"c.zip"}, names(g))
}

func TestEmptyArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/b/c.zip", map[string]string{"a.txt": "a"}, []string{"a.txt"})

	_, _, err := newTestIndexer(t, fs).Open("/b/c.zip")
	assert.Equal(t, failure.EmptyGallery, failure.ReasonOf(err))

	require.NoError(t, afero.WriteFile(fs, "/b/broken.zip", []byte("not a zip"), 0644))
	_, _, err = newTestIndexer(t, fs).Open("/b/broken.zip")
	assert.Equal(t, failure.DirectoryUnreadable, failure.ReasonOf(err))
}

func TestCopyUniqueNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src", "cat.png")
	writeZip(t, fs, "/src/book.zip", map[string]string{"inner/cat.png": "zipped"}, []string{"inner/cat.png"})
	ix := newTestIndexer(t, fs)
	src := Entry{Path: "/src/cat.png", Name: "cat.png"}

	dst, err := ix.Copy(src, "/dst")
	require.NoError(t, err)
	assert.Equal(t, "/dst/cat.png", dst)

	dst, err = ix.Copy(src, "/dst")
	require.NoError(t, err)
	assert.Equal(t, "/dst/cat-1.png", dst)

	g, _, err := ix.Open("/src/book.zip")
	require.NoError(t, err)
	dst, err = ix.Copy(g.At(0), "/dst")
	require.NoError(t, err)
	assert.Equal(t, "/dst/cat-2.png", dst)

	data, err := afero.ReadFile(fs, dst)
	require.NoError(t, err)
	assert.Equal(t, "zipped", string(data))

	_, err = ix.Copy(Entry{Path: "/src/gone.png", Name: "gone.png"}, "/dst")
	assert.Equal(t, failure.FileUnreadable, failure.ReasonOf(err))
}

func TestSplitArchivePath(t *testing.T) {
	archive, inner, ok := SplitArchivePath("/a/b.zip::dir/c.png")
	assert.True(t, ok)
	assert.Equal(t, "/a/b.zip", archive)
	assert.Equal(t, "dir/c.png", inner)
	assert.Equal(t, "/a/b.zip::dir/c.png", JoinArchivePath(archive, inner))

	_, _, ok = SplitArchivePath("/a/b.png")
	assert.False(t, ok)

	_, _, ok = SplitArchivePath("/a/b::c.png")
	assert.False(t, ok, "separator after a non-archive name")

	archive, inner, ok = SplitArchivePath("/a::b/c.cbz::d.png")
	assert.True(t, ok)
	assert.Equal(t, "/a::b/c.cbz", archive)
	assert.Equal(t, "d.png", inner)
}

func TestPlainFileWithSeparatorInName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d", "a::b.png", "c.png")
	ix := newTestIndexer(t, fs)

	data, err := ix.ReadFile("/d/a::b.png")
	require.NoError(t, err)
	assert.Equal(t, "a::b.png", string(data))

	g, idx, err := ix.Open("/d/a::b.png")
	require.NoError(t, err)
	assert.Equal(t, "/d", g.Source())
	assert.Equal(t, "/d/a::b.png", g.At(idx).Path)
	assert.Empty(t, g.At(idx).Archive)
}
