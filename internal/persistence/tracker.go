package persistence

import (
	"sort"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Change flags what kind of state changed since the last flush.
type Change uint8

const (
	// ConfigChange forces a full rewrite.
	ConfigChange Change = 1 << iota
	// StatsChange covers the stats slot of one hot zone.
	StatsChange
	// StatusChange covers the queued zone descriptor slots.
	StatusChange
)

const (
	// QueueDepth bounds the dirty zone queue.
	QueueDepth = 128

	// GapPages is the page distance within which a new dirty zone counts as
	// clustered with a queued one.
	GapPages = 2

	// ClusterLimit is the number of clustered entries that escalates the
	// next flush to a full rewrite.
	ClusterLimit = 2
)

// Plan is the set of pages a flush must write.
type Plan struct {
	Full  bool
	Pages []uint32
}

// Empty reports whether there is nothing to write.
func (p Plan) Empty() bool {
	return !p.Full && len(p.Pages) == 0
}

// Tracker accumulates dirty state between flushes. It is not safe for
// concurrent use; the engine's state lock serializes access.
type Tracker struct {
	changes  Change
	hotFirst uint32
	hotLast  uint32
	queue    []uint32
	cluster  int
	escalate bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{queue: make([]uint32, 0, QueueDepth)}
}

// Dirty reports whether anything awaits a flush.
func (t *Tracker) Dirty() bool {
	return t.changes != 0
}

// Changes returns the pending change flags.
func (t *Tracker) Changes() Change {
	return t.changes
}

// QueueLen returns the number of queued dirty zones.
func (t *Tracker) QueueLen() int {
	return len(t.queue)
}

// MarkConfig records a configuration change.
func (t *Tracker) MarkConfig() {
	t.changes |= ConfigChange
}

// MarkStats records a statistics change for zone idx. The hot stats pages
// may span at most two pages; changes spread wider escalate to a full
// rewrite so the persisted checksum never covers stale pages.
func (t *Tracker) MarkStats(idx uint32) {
	first, last := slotPages(types.ZoneStatsSlot(idx), types.ZoneStatsSize)
	if t.changes&StatsChange == 0 {
		t.hotFirst, t.hotLast = first, last
	} else {
		t.hotFirst = min(t.hotFirst, first)
		t.hotLast = max(t.hotLast, last)
		if t.hotLast-t.hotFirst >= 2 {
			t.escalate = true
		}
	}
	t.changes |= StatsChange
}

// MarkStatus records a descriptor change for zone idx in a state of numZones
// zones. A zone whose descriptor pages are already queued is covered. A full
// queue, or too many entries landing near queued ones, escalates the next
// flush to a full rewrite.
func (t *Tracker) MarkStatus(idx, numZones uint32) {
	t.changes |= StatusChange
	if t.escalate {
		return
	}
	if len(t.queue) == QueueDepth {
		t.escalate = true
		return
	}

	first, last := descriptorPages(numZones, idx)
	near := false
	for _, q := range t.queue {
		qf, ql := descriptorPages(numZones, q)
		if qf == first && ql == last {
			return
		}
		if first <= ql+GapPages && qf <= last+GapPages {
			near = true
		}
	}
	t.queue = append(t.queue, idx)
	if near {
		t.cluster++
		if t.cluster >= ClusterLimit {
			t.escalate = true
		}
	}
}

// Take returns the flush plan for a state of numZones zones and resets the
// tracker. An empty directory is never persisted.
func (t *Tracker) Take(numZones uint32) Plan {
	defer t.reset()

	if t.changes == 0 || numZones == 0 {
		return Plan{}
	}
	if t.changes&ConfigChange != 0 || t.escalate {
		return Plan{Full: true}
	}

	total := uint32(types.AlignUp(int64(types.StateSize(numZones)), types.PageSize) / types.PageSize)
	pages := map[uint32]struct{}{0: {}}
	add := func(first, last uint32) {
		for p := first; p <= last && p < total; p++ {
			pages[p] = struct{}{}
		}
	}
	if t.changes&StatsChange != 0 {
		add(t.hotFirst, t.hotLast)
	}
	if t.changes&StatusChange != 0 {
		for _, idx := range t.queue {
			if idx < numZones {
				add(descriptorPages(numZones, idx))
			}
		}
	}

	plan := Plan{Pages: make([]uint32, 0, len(pages))}
	for p := range pages {
		plan.Pages = append(plan.Pages, p)
	}
	sort.Slice(plan.Pages, func(i, j int) bool { return plan.Pages[i] < plan.Pages[j] })
	return plan
}

// Requeue restores a plan that failed to write so the next flush retries it
// as a full rewrite.
func (t *Tracker) Requeue() {
	t.changes |= ConfigChange
}

func (t *Tracker) reset() {
	t.changes = 0
	t.hotFirst = 0
	t.hotLast = 0
	t.queue = t.queue[:0]
	t.cluster = 0
	t.escalate = false
}

func descriptorPages(numZones, idx uint32) (uint32, uint32) {
	return slotPages(types.ZoneDescriptorSlot(numZones, idx), types.ZoneDescriptorSize)
}

func slotPages(off, size uint32) (uint32, uint32) {
	return off / types.PageSize, (off + size - 1) / types.PageSize
}
