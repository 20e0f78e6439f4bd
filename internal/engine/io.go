package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Read evaluates a read of sectors sectors at lba and, if accepted, returns
// the data from the backing device. A rejected read returns a
// *types.PolicyError and a permitted violation sleeps for the configured
// penalty first.
func (e *Engine) Read(ctx context.Context, lba uint64, sectors uint32) ([]byte, policy.Decision, error) {
	d, err := e.submit(ctx, policy.Request{LBA: lba, Sectors: sectors, Dir: policy.DirRead})
	if err != nil || sectors == 0 {
		return nil, d, err
	}
	data, err := e.dev.ReadBlock(types.SectorsToBytes(lba), int(types.SectorsToBytes(uint64(sectors))))
	if err != nil {
		return nil, d, fmt.Errorf("failed to read backing device: %w", err)
	}
	return data, d, nil
}

// Write evaluates a write of data at lba and, if accepted, stores it on the
// backing device. The length of data must be a whole number of sectors.
func (e *Engine) Write(ctx context.Context, lba uint64, data []byte) (policy.Decision, error) {
	if len(data)%types.SectorSize != 0 {
		return policy.Decision{Dir: policy.DirWrite, LBA: lba}, types.NewConfigError("write of %d bytes is not a whole number of sectors", len(data))
	}
	sectors := types.BytesToSectors(len(data))
	if sectors > uint64(^uint32(0)) {
		return policy.Decision{Dir: policy.DirWrite, LBA: lba}, types.NewConfigError("write of %d sectors is too large", sectors)
	}
	d, err := e.submit(ctx, policy.Request{LBA: lba, Sectors: uint32(sectors), Dir: policy.DirWrite})
	if err != nil || sectors == 0 {
		return d, err
	}
	if err := e.dev.WriteBlock(types.SectorsToBytes(lba), data); err != nil {
		return d, fmt.Errorf("failed to write backing device: %w", err)
	}
	return d, nil
}

// submit runs the policy checks, records the outcome, and applies the penalty
// of a permitted violation.
func (e *Engine) submit(ctx context.Context, req policy.Request) (policy.Decision, error) {
	d, debug := e.decide(req)
	e.report(&d, debug)

	if !d.Accepted() {
		return d, d.Err()
	}
	if d.Penalty > 0 {
		e.met.RecordPenalty(d.Penalty)
		timer := time.NewTimer(d.Penalty)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return d, ctx.Err()
		case <-timer.C:
		}
	}
	return d, nil
}

func (e *Engine) decide(req policy.Request) (policy.Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.agg.TouchIdle()
	d := e.checker.Evaluate(req)

	n := e.table.NumZones()
	if d.StatsChanged && d.StatsZone < n {
		e.tracker.MarkStats(d.StatsZone)
	}
	for _, idx := range d.Touched {
		e.tracker.MarkStatus(idx, n)
	}
	if v := d.LastViolation(); v != types.ViolationNone {
		if req.Dir == policy.DirWrite {
			e.lastWrite = v
		} else {
			e.lastRead = v
		}
	}
	return d, e.debug
}

func (e *Engine) report(d *policy.Decision, debug bool) {
	outcome := "accepted"
	switch {
	case !d.Accepted():
		outcome = "rejected"
	case d.OutOfPolicy():
		outcome = "permitted"
	}
	names := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		names[i] = v.String()
	}
	e.met.RecordDecision(d.Dir.String(), outcome, names)

	fields := []interface{}{
		"dir", d.Dir.String(),
		"lba", d.LBA,
		"zone", d.Zone,
		"outcome", outcome,
		"code", d.Code.String(),
	}
	if len(names) > 0 {
		fields = append(fields, "violations", names)
	}
	if d.Override != policy.OverrideNone {
		fields = append(fields, "override", d.Override.String())
	}
	if debug {
		e.log.Info("policy decision", fields...)
	} else {
		e.log.Debug("policy decision", fields...)
	}
}
