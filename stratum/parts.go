package stratum

import (
	"sort"
	"sync"
)

// Parts accumulates PartID completion tokens from concurrently running part
// upload tasks and reconstructs the final ordered part list.
//
// One Parts value belongs to one multipart upload session. Put may be
// called from any number of goroutines; Finish is the single join point and
// must only be called once every expected Put has returned. The lock is
// held only for the duration of a Put or Finish call, never across I/O.
type Parts struct {
	mu    sync.Mutex
	parts []indexedPart
}

type indexedPart struct {
	idx  int
	part PartID
}

// Put records the PartID for a given submitted index.
//
// Indexes are not validated for uniqueness or range: calling Put twice with
// the same index leaves two entries in the ledger, which Finish counts
// toward the expected total.
func (p *Parts) Put(idx int, id PartID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parts = append(p.parts, indexedPart{idx: idx, part: id})
}

// Finish produces the final ordered list of PartIDs and clears the ledger.
//
// expected is the number of parts the session submitted. Finish returns
// ErrMissingPart unless exactly that many entries were recorded — a
// duplicate index inflates the count without covering a distinct slot, so
// duplicates surface as a missing part too.
//
// Ordering: entries of equal size sort by ascending submitted index,
// otherwise by descending size. Callers are expected to upload equal-size
// parts with at most a shorter final part, so size acts as a position proxy
// that is robust against out-of-order task completion.
func (p *Parts) Finish(expected int) ([]PartID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.parts) != expected {
		return nil, ErrMissingPart
	}

	sort.SliceStable(p.parts, func(i, j int) bool {
		a, b := p.parts[i], p.parts[j]
		if a.part.Size == b.part.Size {
			return a.idx < b.idx
		}
		return a.part.Size > b.part.Size
	})

	out := make([]PartID, len(p.parts))
	for i, entry := range p.parts {
		out[i] = entry.part
	}
	p.parts = nil
	return out, nil
}
