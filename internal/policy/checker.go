package policy

import (
	"math"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/deploymenttheory/go-smrsim/internal/zones"
)

// BorderCrossMatch selects how a zone's Flag is tested when deciding whether a
// write may be split across a zone border.
type BorderCrossMatch uint8

const (
	// MatchExact requires Flag to equal one of the border-cross modes.
	MatchExact BorderCrossMatch = iota
	// MatchBitmask requires Flag to have any border-cross mode bit set.
	MatchBitmask
)

func (m BorderCrossMatch) String() string {
	if m == MatchBitmask {
		return "bitmask"
	}
	return "exact"
}

// Options holds the research overrides.
type Options struct {
	// BackwardReset treats a write at the zone start as a write pointer reset.
	BackwardReset bool
	// ForwardAdjust moves the write pointer forward to a write landing ahead of it.
	ForwardAdjust bool
	// BorderCrossMatch is the split trigger predicate.
	BorderCrossMatch BorderCrossMatch
}

// Checker evaluates requests against a zone table. Like the table, it relies
// on the caller to serialize access.
type Checker struct {
	table *zones.Table
	opts  Options
}

// NewChecker creates a checker over table.
func NewChecker(table *zones.Table, opts Options) *Checker {
	return &Checker{table: table, opts: opts}
}

// Options returns the active research overrides.
func (c *Checker) Options() Options { return c.opts }

// SetOptions replaces the research overrides.
func (c *Checker) SetOptions(opts Options) { c.opts = opts }

// Evaluate runs the precondition checks and the read or write rules for req,
// applying any resulting zone and statistics updates.
func (c *Checker) Evaluate(req Request) Decision {
	t := c.table
	d := Decision{Dir: req.Dir, LBA: req.LBA}

	idx := t.ZoneIndex(req.LBA)
	if idx > math.MaxUint32 {
		idx = math.MaxUint32
	}
	d.Zone = uint32(idx)
	d.StatsZone = d.Zone
	if idx >= uint64(t.NumZones()) {
		d.reject(types.ViolationOutOfRange)
		return d
	}
	if req.Sectors == 0 {
		return d
	}

	size := uint64(t.ZoneSize())
	base := t.ZoneBase(d.Zone)
	end := req.End()
	if end > base+types.MaxRequestZones*size {
		d.reject(types.ViolationOutOfPolicy)
		return d
	}
	if end > uint64(t.NumZones())*size {
		d.reject(types.ViolationOutOfRange)
		return d
	}
	z := t.Zone(d.Zone)
	if z.Condition == types.ZoneCondOffline {
		d.reject(types.ViolationZoneOffline)
		return d
	}

	cfg := t.Config()
	var penalty uint16
	if req.Dir == DirWrite {
		c.write(&d, req, z, cfg.WritePermitted())
		penalty = cfg.WritePenaltyMillis
	} else {
		c.read(&d, req, z, cfg.ReadPermitted())
		penalty = cfg.ReadPenaltyMillis
	}

	if d.Code == types.ViolationNone && len(d.Violations) > 0 {
		d.Code = types.ViolationOutOfPolicy
	}
	if d.OutOfPolicy() && !cfg.Passthrough() {
		d.Penalty = time.Duration(penalty) * time.Millisecond
	}
	return d
}

func (c *Checker) read(d *Decision, req Request, z *types.ZoneDescriptor, permit bool) {
	st := c.table.Stats().Zone(d.Zone)
	base := c.table.ZoneBase(d.Zone)
	end := req.End()

	if end > base+uint64(z.Length) {
		d.bump(&st.Read.SpanZonesCount)
		if d.violate(types.ViolationReadBorder, permit) {
			return
		}
	}
	if z.IsSequential() && end > base+uint64(z.WritePtrOffset) {
		d.bump(&st.Read.BeyondWPCount)
		d.violate(types.ViolationReadPointer, permit)
	}
}

func (c *Checker) write(d *Decision, req Request, z *types.ZoneDescriptor, permit bool) {
	st := c.table.Stats().Zone(d.Zone)
	base := c.table.ZoneBase(d.Zone)
	end := req.End()

	if z.Condition == types.ZoneCondReadOnly {
		if d.violate(types.ViolationWriteReadOnly, permit) {
			return
		}
	}
	if z.Condition == types.ZoneCondFull && req.LBA != base {
		if d.violate(types.ViolationWriteFull, permit) {
			return
		}
	}

	seq := z.IsSequential()
	wasFull := seq && z.Condition == types.ZoneCondFull
	if seq && types.SectorsToBytes(uint64(req.Sectors))%types.WriteAlignment != 0 {
		d.bump(&st.Write.UnalignedCount)
		if d.violate(types.ViolationWriteAlign, permit) {
			return
		}
	}

	// wp is committed only once the request is known to be accepted.
	wp := z.WritePtrOffset
	if seq && req.LBA != base+uint64(wp) {
		switch {
		case c.opts.BackwardReset && req.LBA == base:
			wp = 0
			d.Override = OverrideBackwardReset
		case c.opts.ForwardAdjust && req.LBA > base+uint64(wp):
			d.bump(&st.Write.NotOnWPCount)
			wp = uint32(req.LBA - base)
			d.Override = OverrideForwardAdjust
		default:
			d.bump(&st.Write.NotOnWPCount)
			if d.violate(types.ViolationWritePointer, permit) {
				return
			}
		}
	}

	if end > base+uint64(z.Length) {
		c.crossBorder(d, req, z, permit)
		return
	}

	rel := uint32(end - base)
	switch {
	case wasFull && permit:
		// A permitted rewrite of a full zone reopens it at the end of the write.
		wp = rel
	case rel > wp:
		wp = rel
	}
	switch {
	case z.IsConventional():
		z.WritePtrOffset = wp
	case z.Condition == types.ZoneCondReadOnly:
		return
	default:
		setPointer(z, wp)
	}
	d.touch(d.Zone)
}

// crossBorder handles a write whose end lies past the current zone. The
// request cap guarantees it reaches at most into the next zone.
func (c *Checker) crossBorder(d *Decision, req Request, z *types.ZoneDescriptor, permit bool) {
	t := c.table
	st := t.Stats().Zone(d.Zone)
	size := uint64(t.ZoneSize())
	end := req.End()
	last := uint32((end - 1) / size)

	for i := d.Zone + 1; i <= last; i++ {
		if t.Zone(i).Condition == types.ZoneCondOffline {
			d.Zone = i
			d.reject(types.ViolationZoneOffline)
			return
		}
	}

	next := t.Zone(d.Zone + 1)
	if c.splitAllowed(z, next) {
		setPointer(z, z.Length)
		setPointer(next, uint32(end-t.ZoneBase(d.Zone+1)))
		d.bump(&st.Write.SpanZonesCount)
		d.Override = OverrideSplit
		d.touch(d.Zone, d.Zone+1)
		return
	}

	if !z.IsConventional() {
		d.bump(&st.Write.SpanZonesCount)
		if d.violate(types.ViolationWriteBorder, permit) {
			return
		}
	} else {
		for i := d.Zone + 1; i <= last; i++ {
			if !t.Zone(i).IsConventional() {
				d.bump(&st.Write.SpanZonesCount)
				if d.violate(types.ViolationWriteBorder, permit) {
					return
				}
				break
			}
		}
	}

	for i := d.Zone; i < last; i++ {
		fill(t.Zone(i))
		d.touch(i)
	}
	tail := t.Zone(last)
	rem := uint32(end - t.ZoneBase(last))
	switch {
	case tail.IsConventional():
		if rem > tail.WritePtrOffset {
			tail.WritePtrOffset = rem
		}
	case tail.Condition == types.ZoneCondReadOnly:
		return
	default:
		setPointer(tail, rem)
	}
	d.touch(last)
}

// splitAllowed decides whether a write crossing from z into next is split
// across the two zones instead of being treated as a border violation.
func (c *Checker) splitAllowed(z, next *types.ZoneDescriptor) bool {
	if next == nil || !z.IsSequential() || !next.IsSequential() {
		return false
	}
	if z.Condition == types.ZoneCondReadOnly || next.Condition == types.ZoneCondReadOnly {
		return false
	}
	if !c.crossFlagSet(z.Flag) {
		return false
	}
	return c.opts.BackwardReset || next.WritePtrOffset == 0
}

func (c *Checker) crossFlagSet(flag uint8) bool {
	seq := uint8(types.BorderCrossSequential)
	cur := uint8(types.BorderCrossCurrent)
	if c.opts.BorderCrossMatch == MatchBitmask {
		return flag&(seq|cur) != 0
	}
	return flag == seq || flag == cur
}

// fill marks a zone completely written.
func fill(z *types.ZoneDescriptor) {
	if z.Condition == types.ZoneCondReadOnly {
		return
	}
	z.WritePtrOffset = z.Length
	if z.IsConventional() {
		z.Condition = types.ZoneCondNoWP
		return
	}
	z.Condition = types.ZoneCondFull
}

// setPointer moves a write-pointer zone to wp and derives its condition.
func setPointer(z *types.ZoneDescriptor, wp uint32) {
	z.WritePtrOffset = wp
	if wp == z.Length {
		z.Condition = types.ZoneCondFull
		return
	}
	z.Condition = types.ZoneCondClosed
}
