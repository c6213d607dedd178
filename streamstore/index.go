package streamstore

import (
	"container/list"
	"hash/maphash"
	"sync"
)

// indexEntry is the resident bookkeeping kept for every key currently
// known to the store: enough to drive eviction without touching disk.
type indexEntry struct {
	key     string
	digest  string
	size    int64
	element *list.Element
}

// residentIndex is the LRU-ordered view of everything on disk, bounded
// by both entry count and total byte size. Eviction is Moka-style:
// admission is gated by an approximate frequency sketch (TinyLFU) so a
// single burst of one-off keys can't flush out a working set of
// frequently reused entries, and the actual LRU list only orders what
// admission has already let in.
type residentIndex struct {
	mu sync.Mutex

	maxEntries int
	maxBytes   int64

	entries map[string]*indexEntry
	lru     *list.List // front = most recently used
	bytes   int64

	sketch *frequencySketch
}

func newResidentIndex(maxEntries int, maxBytes int64) *residentIndex {
	return &residentIndex{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		entries:    make(map[string]*indexEntry),
		lru:        list.New(),
		sketch:     newFrequencySketch(),
	}
}

// touch records a key access, moving it to the front of the LRU list if
// resident and bumping its estimated access frequency regardless.
func (idx *residentIndex) touch(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sketch.add(key)
	if e, ok := idx.entries[key]; ok {
		idx.lru.MoveToFront(e.element)
	}
}

// admit decides whether a newly written key should be kept resident,
// evicting victims as needed to make room. It returns the digests of
// any evicted entries so the caller can release their content
// references. A brand-new key competes with the current LRU tail by
// estimated frequency; a key already resident (an overwrite) is always
// re-admitted since it is not new contention for space beyond its own
// slot.
func (idx *residentIndex) admit(key, digest string, size int64) (victims []indexEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sketch.add(key)

	if e, ok := idx.entries[key]; ok {
		idx.bytes += size - e.size
		e.digest = digest
		e.size = size
		idx.lru.MoveToFront(e.element)
		return idx.evictLocked(key)
	}

	for idx.overCapacityLocked(size) {
		back := idx.lru.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*indexEntry)
		if !idx.sketch.admitCandidateOverVictim(key, victim.key) {
			// candidate loses to the incumbent tail: refuse admission
			// entirely rather than evict a more popular entry for it.
			return victims
		}
		idx.removeLocked(victim.key)
		victims = append(victims, *victim)
	}

	e := &indexEntry{key: key, digest: digest, size: size}
	e.element = idx.lru.PushFront(e)
	idx.entries[key] = e
	idx.bytes += size
	return victims
}

// evictLocked trims down to capacity after an in-place update grew an
// existing entry's size; it never refuses admission for overwrites.
func (idx *residentIndex) evictLocked(skip string) (victims []indexEntry) {
	for (idx.maxEntries > 0 && len(idx.entries) > idx.maxEntries) || (idx.maxBytes > 0 && idx.bytes > idx.maxBytes) {
		back := idx.lru.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*indexEntry)
		if victim.key == skip {
			break
		}
		idx.removeLocked(victim.key)
		victims = append(victims, *victim)
	}
	return victims
}

func (idx *residentIndex) overCapacityLocked(pending int64) bool {
	if idx.maxEntries > 0 && len(idx.entries) >= idx.maxEntries {
		return true
	}
	if idx.maxBytes > 0 && idx.bytes+pending > idx.maxBytes {
		return true
	}
	return false
}

// remove drops key from the index, returning its entry if it was
// present.
func (idx *residentIndex) remove(key string) (indexEntry, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.entries[key]
	if !ok {
		return indexEntry{}, false
	}
	idx.removeLocked(key)
	return *e, true
}

func (idx *residentIndex) removeLocked(key string) {
	e, ok := idx.entries[key]
	if !ok {
		return
	}
	idx.lru.Remove(e.element)
	delete(idx.entries, key)
	idx.bytes -= e.size
}

func (idx *residentIndex) lookup(key string) (indexEntry, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.entries[key]
	if !ok {
		return indexEntry{}, false
	}
	return *e, true
}

func (idx *residentIndex) len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}

// frequencySketch is a small count-min-sketch with periodic halving,
// the standard TinyLFU admission filter: cheap, approximate, and biased
// toward recent activity rather than all-time totals.
type frequencySketch struct {
	mu      sync.Mutex
	seed    maphash.Seed
	width   uint64
	rows    [4][]uint8
	adds    int
	maxAdds int
}

const sketchWidth = 1024

func newFrequencySketch() *frequencySketch {
	fs := &frequencySketch{
		seed:    maphash.MakeSeed(),
		width:   sketchWidth,
		maxAdds: sketchWidth * 10,
	}
	for i := range fs.rows {
		fs.rows[i] = make([]uint8, sketchWidth)
	}
	return fs
}

func (fs *frequencySketch) slot(row int, key string) uint64 {
	var h maphash.Hash
	h.SetSeed(fs.seed)
	h.WriteByte(byte(row))
	h.WriteString(key)
	return h.Sum64() % fs.width
}

func (fs *frequencySketch) add(key string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for row := range fs.rows {
		s := fs.slot(row, key)
		if fs.rows[row][s] < 15 {
			fs.rows[row][s]++
		}
	}
	fs.adds++
	if fs.adds >= fs.maxAdds {
		fs.resetLocked()
	}
}

func (fs *frequencySketch) resetLocked() {
	for row := range fs.rows {
		for i := range fs.rows[row] {
			fs.rows[row][i] /= 2
		}
	}
	fs.adds /= 2
}

func (fs *frequencySketch) estimate(key string) uint8 {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	min := uint8(255)
	for row := range fs.rows {
		s := fs.slot(row, key)
		if v := fs.rows[row][s]; v < min {
			min = v
		}
	}
	return min
}

// admitCandidateOverVictim reports whether candidate should displace
// victim at the tail of the LRU. Ties favor the incumbent, matching
// Caffeine/Moka's bias toward recency when frequency is equal.
func (fs *frequencySketch) admitCandidateOverVictim(candidate, victim string) bool {
	return fs.estimate(candidate) > fs.estimate(victim)
}
