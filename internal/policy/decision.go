// Package policy implements the per-I/O zone state machine: it validates a
// read or write against the zone directory, advances write pointers and zone
// conditions, counts violations, and decides between rejecting the request and
// satisfying it with a penalty.
package policy

import (
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Direction is the data direction of a request.
type Direction uint8

const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// Request is one I/O submitted to the emulated device.
type Request struct {
	LBA     uint64
	Sectors uint32
	Dir     Direction
}

// End returns the first LBA past the request.
func (r Request) End() uint64 {
	return r.LBA + uint64(r.Sectors)
}

// Override names the research behavior that admitted a request, if any.
type Override uint8

const (
	OverrideNone Override = iota
	OverrideBackwardReset
	OverrideForwardAdjust
	OverrideSplit
)

func (o Override) String() string {
	switch o {
	case OverrideBackwardReset:
		return "backward-reset"
	case OverrideForwardAdjust:
		return "forward-adjust"
	case OverrideSplit:
		return "split"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating a request.
type Decision struct {
	Dir  Direction
	LBA  uint64
	Zone uint32

	// Code is ViolationNone for a clean pass, ViolationOutOfPolicy for a
	// permitted violation, and the specific violation for a rejection.
	Code types.ViolationCode

	// Violations lists every rule the request broke, in check order.
	Violations []types.ViolationCode

	// Penalty is the delay to apply before completing a permitted violation.
	Penalty time.Duration

	// Touched lists the zones whose descriptors changed.
	Touched []uint32

	// StatsChanged is set when any violation counter moved. Counters are
	// always charged to StatsZone, the zone the request starts in, which
	// differs from Zone when a crossing write is rejected by a later zone.
	StatsChanged bool
	StatsZone    uint32

	Override Override
}

// Accepted reports whether the request may proceed to the backing device.
func (d *Decision) Accepted() bool {
	return d.Code == types.ViolationNone || d.Code == types.ViolationOutOfPolicy
}

// OutOfPolicy reports whether the request was accepted despite violations.
func (d *Decision) OutOfPolicy() bool {
	return d.Code == types.ViolationOutOfPolicy
}

// Err returns a *types.PolicyError for a rejected request, nil otherwise.
func (d *Decision) Err() error {
	if d.Accepted() {
		return nil
	}
	return &types.PolicyError{Code: d.Code, Zone: d.Zone, LBA: d.LBA}
}

// LastViolation returns the most recent violation recorded, or ViolationNone.
func (d *Decision) LastViolation() types.ViolationCode {
	if !d.Accepted() {
		return d.Code
	}
	if n := len(d.Violations); n > 0 {
		return d.Violations[n-1]
	}
	return types.ViolationNone
}

// violate records a broken rule. It returns true when the request is rejected.
func (d *Decision) violate(code types.ViolationCode, permit bool) bool {
	d.Violations = append(d.Violations, code)
	if !permit {
		d.Code = code
		return true
	}
	return false
}

func (d *Decision) reject(code types.ViolationCode) {
	d.Code = code
}

func (d *Decision) bump(counter *uint32) {
	*counter++
	d.StatsChanged = true
}

func (d *Decision) touch(idx ...uint32) {
	d.Touched = append(d.Touched, idx...)
}
