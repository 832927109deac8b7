package cell

import (
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// MaxClusterBytes bounds the UTF-8 byte length of a grapheme cluster a Cell
// can hold, per spec §3 ("≤15 bytes UTF-8"). Emoji ZWJ sequences and
// combining-mark stacks longer than this are truncated to their first rune;
// this is a defensive bound, not something well-formed terminal output is
// expected to hit.
const MaxClusterBytes = 15

// Cell is one terminal grid cell: a grapheme cluster, its cached display
// width, a packed attribute, and a transient dirty flag.
//
// Invariant (spec §3): if a cell is the leading half of a wide character,
// cell at column+1 must be a Trailing marker (Width()==0, empty text, same
// Attr). A Trailing cell never stands alone; Buffer enforces this on every
// write (see internal/screen).
type Cell struct {
	text  [MaxClusterBytes]byte
	tlen  uint8
	width uint8 // 0 = trailing marker, 1 = narrow, 2 = wide
	attr  Attr
	dirty bool
}

// Empty returns an empty (space) cell with the default attribute.
func Empty() Cell {
	return Cell{width: 1, attr: DefaultAttr}
}

// Trailing returns the trailing marker cell placed after a wide character's
// leading cell. It carries the same attribute as the leading cell so a
// style query anywhere in the pair is consistent, but no text and no width.
func Trailing(attr Attr) Cell {
	return Cell{width: 0, attr: attr}
}

// New builds a Cell from a single grapheme cluster and attribute. The
// cluster's width is computed (and cache-memoized) from its first rune, per
// the East-Asian-width convention combining marks already satisfy via
// grapheme segmentation (a combining mark never starts a cluster).
//
// If cluster is empty, New returns Empty() with attr applied. If cluster
// exceeds MaxClusterBytes, it is truncated to its leading rune.
func New(cluster string, attr Attr) Cell {
	if cluster == "" {
		return Cell{width: 1, attr: attr}
	}

	if len(cluster) > MaxClusterBytes {
		cluster = firstRuneOnly(cluster)
	}

	c := Cell{attr: attr, width: uint8(widthOf(cluster))}
	c.tlen = uint8(copy(c.text[:], cluster))
	if c.width == 0 {
		// A cluster with a genuinely zero-width base rune (rare: an
		// unattached combining mark fed in directly, bypassing
		// SplitClusters) still occupies one column so it never collides
		// with the wide-char pairing invariant.
		c.width = 1
	}
	return c
}

func firstRuneOnly(s string) string {
	for i, r := range s {
		_ = r
		if i > 0 {
			return s[:i]
		}
	}
	return s
}

// Text returns the cell's grapheme cluster, or a single space for an empty
// cell (spec §3: "Empty means space").
func (c Cell) Text() string {
	if c.tlen == 0 {
		if c.width == 0 {
			return ""
		}
		return " "
	}
	return string(c.text[:c.tlen])
}

// Width returns the cell's display width: 0 for a trailing marker, else 1
// or 2.
func (c Cell) Width() int { return int(c.width) }

// Attr returns the cell's packed attribute.
func (c Cell) Attr() Attr { return c.attr }

// WithAttr returns a copy of c with the attribute replaced.
func (c Cell) WithAttr(a Attr) Cell {
	c.attr = a
	return c
}

// Dirty reports the cell's transient dirty flag. The flag is maintained by
// internal/screen during a flush cycle; Cell itself never sets or clears it
// except via MarkDirty/MarkClean.
func (c Cell) Dirty() bool { return c.dirty }

// MarkDirty returns a copy of c with the dirty flag set.
func (c Cell) MarkDirty() Cell { c.dirty = true; return c }

// MarkClean returns a copy of c with the dirty flag cleared.
func (c Cell) MarkClean() Cell { c.dirty = false; return c }

// IsTrailing reports whether c is a wide-character trailing marker.
func (c Cell) IsTrailing() bool { return c.width == 0 }

// IsEmpty reports whether c displays as a blank space.
func (c Cell) IsEmpty() bool { return c.tlen == 0 && c.width != 0 }

// EqualDisplay reports whether two cells would render identically,
// ignoring the dirty flag.
func (c Cell) EqualDisplay(o Cell) bool {
	return c.tlen == o.tlen && c.text == o.text && c.width == o.width && c.attr == o.attr
}

// SplitClusters segments s into grapheme clusters using Unicode text
// segmentation (UAX #29), the same algorithm tcell's own indirect
// dependency (github.com/rivo/uniseg) implements — promoted here to a
// direct import since spec §4.1's PutText must place one cell per
// user-perceived character, not per rune.
func SplitClusters(s string) []string {
	if s == "" {
		return nil
	}
	clusters := make([]string, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	return clusters
}

// widthCache memoizes grapheme-cluster -> display-width lookups. ASCII
// clusters (the overwhelming majority in practice) take a branch-free fast
// path; everything else goes through a small bounded map, per spec §9's
// "memoize cluster -> width, keyed by cluster bytes; the cache is bounded".
type widthCache struct {
	mu    sync.Mutex
	cache map[string]int
	cap   int
}

const defaultWidthCacheCap = 1024

var globalWidthCache = &widthCache{cache: make(map[string]int), cap: defaultWidthCacheCap}

func widthOf(cluster string) int {
	if len(cluster) == 1 {
		b := cluster[0]
		if b < 0x20 || b == 0x7F {
			return 0
		}
		if b < 0x80 {
			return 1
		}
	}
	return globalWidthCache.lookup(cluster)
}

func (wc *widthCache) lookup(cluster string) int {
	wc.mu.Lock()
	if w, ok := wc.cache[cluster]; ok {
		wc.mu.Unlock()
		return w
	}
	wc.mu.Unlock()

	w := computeWidth(cluster)

	wc.mu.Lock()
	if len(wc.cache) >= wc.cap {
		// Bounded: drop the cache wholesale rather than implement a full
		// LRU. Width lookups are pure functions of the cluster bytes, so a
		// cold cache only costs a recompute, never a correctness bug — an
		// eviction policy more elaborate than "reset" would buy nothing
		// proportionate to its complexity here.
		wc.cache = make(map[string]int)
	}
	wc.cache[cluster] = w
	wc.mu.Unlock()
	return w
}

func computeWidth(cluster string) int {
	for _, r := range cluster {
		w := runewidth.RuneWidth(r)
		if w < 0 {
			w = 0
		}
		return w
	}
	return 0
}
