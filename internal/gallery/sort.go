package gallery

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/unicode/norm"
)

// SortMethod selects how a gallery is ordered
type SortMethod int

const (
	SortNatural SortMethod = iota
	SortSimple
	SortModTime
	SortEntryOrder
	SortRandom
)

var sortMethodNames = []string{"natural", "simple", "mtime", "entry", "random"}

func (m SortMethod) String() string {
	if m < 0 || int(m) >= len(sortMethodNames) {
		return fmt.Sprintf("SortMethod(%d)", int(m))
	}
	return sortMethodNames[m]
}

// Next returns the method after m, wrapping around.
func (m SortMethod) Next() SortMethod {
	return SortMethod((int(m) + 1) % len(sortMethodNames))
}

// ParseSortMethod accepts the names used in the config file.
func ParseSortMethod(s string) (SortMethod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range sortMethodNames {
		if s == name {
			return SortMethod(i), nil
		}
	}
	return SortNatural, fmt.Errorf("unknown sort method %q", s)
}

// SortMethodNames lists the accepted names in cycling order
func SortMethodNames() []string {
	return append([]string(nil), sortMethodNames...)
}

// SortStrategy defines the interface for different sorting strategies
type SortStrategy interface {
	// Sort returns a new sorted slice without modifying the original
	Sort(entries []Entry) []Entry
	// Name returns the human-readable name of the strategy
	Name() string
	Method() SortMethod
}

// sortKey folds case and unicode normalization so that names typed on
// different systems compare equal.
func sortKey(name string) string {
	return norm.NFC.String(strings.ToLower(name))
}

type keyed struct {
	key   string
	entry Entry
}

func sortByKey(entries []Entry, less func(a, b keyed) bool) []Entry {
	items := make([]keyed, len(entries))
	for i, e := range entries {
		items[i] = keyed{key: sortKey(e.Name), entry: e}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
	result := make([]Entry, len(items))
	for i, it := range items {
		result[i] = it.entry
	}
	return result
}

// NaturalSortStrategy orders digit runs numerically, ignoring case
type NaturalSortStrategy struct{}

func (s *NaturalSortStrategy) Sort(entries []Entry) []Entry {
	return sortByKey(entries, func(a, b keyed) bool {
		return natural.Less(a.key, b.key)
	})
}

func (s *NaturalSortStrategy) Name() string {
	return "Natural"
}

func (s *NaturalSortStrategy) Method() SortMethod {
	return SortNatural
}

// SimpleSortStrategy implements case-insensitive lexicographical sorting
type SimpleSortStrategy struct{}

func (s *SimpleSortStrategy) Sort(entries []Entry) []Entry {
	return sortByKey(entries, func(a, b keyed) bool {
		return a.key < b.key
	})
}

func (s *SimpleSortStrategy) Name() string {
	return "Simple"
}

func (s *SimpleSortStrategy) Method() SortMethod {
	return SortSimple
}

// ModTimeSortStrategy puts the most recently modified files first and falls
// back to natural order for equal timestamps.
type ModTimeSortStrategy struct{}

func (s *ModTimeSortStrategy) Sort(entries []Entry) []Entry {
	return sortByKey(entries, func(a, b keyed) bool {
		if !a.entry.ModTime.Equal(b.entry.ModTime) {
			return a.entry.ModTime.After(b.entry.ModTime)
		}
		return natural.Less(a.key, b.key)
	})
}

func (s *ModTimeSortStrategy) Name() string {
	return "Modified"
}

func (s *ModTimeSortStrategy) Method() SortMethod {
	return SortModTime
}

// EntryOrderSortStrategy preserves the listing order
type EntryOrderSortStrategy struct{}

func (s *EntryOrderSortStrategy) Sort(entries []Entry) []Entry {
	return append([]Entry{}, entries...)
}

func (s *EntryOrderSortStrategy) Name() string {
	return "Entry Order"
}

func (s *EntryOrderSortStrategy) Method() SortMethod {
	return SortEntryOrder
}

// RandomSortStrategy shuffles the gallery. Each Sort call draws a new seed
// unless Seed is set, so one gallery keeps its order until it is rebuilt.
type RandomSortStrategy struct {
	Seed uint64
}

func (s *RandomSortStrategy) Sort(entries []Entry) []Entry {
	seed := s.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	// shuffle from a fixed order so the seed alone decides the result
	result := (&NaturalSortStrategy{}).Sort(entries)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(result), func(i, j int) {
		result[i], result[j] = result[j], result[i]
	})
	return result
}

func (s *RandomSortStrategy) Name() string {
	return "Random"
}

func (s *RandomSortStrategy) Method() SortMethod {
	return SortRandom
}

// GetSortStrategy returns the strategy for m, natural for unknown values.
func GetSortStrategy(m SortMethod) SortStrategy {
	switch m {
	case SortSimple:
		return &SimpleSortStrategy{}
	case SortModTime:
		return &ModTimeSortStrategy{}
	case SortEntryOrder:
		return &EntryOrderSortStrategy{}
	case SortRandom:
		return &RandomSortStrategy{}
	default:
		return &NaturalSortStrategy{}
	}
}
