package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-smrsim/internal/logger"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/google/uuid"
)

// Target is the engine surface commands act on.
type Target interface {
	NumZones() uint32
	DefaultZoneSize() uint32
	SetDefaultZoneSize(sectors uint32) error
	ResetZoneWritePointer(lba uint64) error
	QueryZones(lba uint64, criteria types.QueryCriteria, max uint32) ([]types.ZoneDescriptor, error)
	Stats() *types.Stats
	ResetStats()
	ResetZoneStats(lba uint64) error
	DeviceConfig() types.DeviceConfig
	SetReadPolicy(permit bool) error
	SetWritePolicy(permit bool) error
	SetReadPenalty(ms uint16) error
	SetWritePenalty(ms uint16) error
	ClearZoneConfig()
	AddZoneConfig(z types.ZoneDescriptor) error
	ModifyZoneConfig(z types.ZoneDescriptor) error
	ResetDefaultConfig()
	ResetZoneConfig()
	ResetDeviceConfig()
	SetBackwardPointerReset(on bool)
	SetForwardPointerAdjust(on bool)
	SetBorderCrossPolicy(idx uint32, all bool, mode types.BorderCrossMode) error
	SetLogging(on bool)
	LastReadError() types.ViolationCode
	LastWriteError() types.ViolationCode
	Sync(ctx context.Context) error
}

// Reply carries the result of a command. Only the fields relevant to the
// command's Kind are set.
type Reply struct {
	ID        uuid.UUID              `json:"id" yaml:"id"`
	Kind      Kind                   `json:"-" yaml:"-"`
	Value     uint32                 `json:"value,omitempty" yaml:"value,omitempty"`
	Zones     []types.ZoneDescriptor `json:"zones,omitempty" yaml:"zones,omitempty"`
	Stats     *types.Stats           `json:"stats,omitempty" yaml:"stats,omitempty"`
	Config    *types.DeviceConfig    `json:"config,omitempty" yaml:"config,omitempty"`
	Violation types.ViolationCode    `json:"violation,omitempty" yaml:"violation,omitempty"`
}

// Dispatcher routes commands to a target one at a time. Its lock is separate
// from the engine's state lock so a slow command does not hold up I/O beyond
// the state updates it makes.
type Dispatcher struct {
	mu     sync.Mutex
	target Target
	log    *logger.Logger
}

// NewDispatcher returns a dispatcher for target. A nil log discards output.
func NewDispatcher(target Target, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{target: target, log: log.Named("command")}
}

// Dispatch executes cmd and returns its reply.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Reply, error) {
	if cmd == nil {
		return Reply{}, fmt.Errorf("nil command")
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	r := Reply{ID: uuid.New(), Kind: cmd.Kind()}
	err := d.execute(ctx, cmd, &r)
	if err != nil {
		d.log.Warn("command failed", "id", r.ID.String(), "command", r.Kind.String(), err)
		return r, err
	}
	d.log.Debug("command executed", "id", r.ID.String(), "command", r.Kind.String())
	return r, nil
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command, r *Reply) error {
	t := d.target
	switch c := cmd.(type) {
	case GetNumZones:
		r.Value = t.NumZones()
	case GetDefaultZoneSize:
		r.Value = t.DefaultZoneSize()
	case SetDefaultZoneSize:
		return t.SetDefaultZoneSize(c.Sectors)
	case ResetZoneWritePointer:
		return t.ResetZoneWritePointer(c.LBA)
	case QueryZones:
		zones, err := t.QueryZones(c.LBA, c.Criteria, c.Max)
		if err != nil {
			return err
		}
		r.Zones = zones
		r.Value = uint32(len(zones))
	case GetStats:
		r.Stats = t.Stats()
	case ResetStats:
		t.ResetStats()
	case ResetZoneStats:
		return t.ResetZoneStats(c.LBA)
	case GetDeviceConfig:
		cfg := t.DeviceConfig()
		r.Config = &cfg
	case SetReadPolicy:
		return t.SetReadPolicy(c.Permit)
	case SetWritePolicy:
		return t.SetWritePolicy(c.Permit)
	case SetReadPenalty:
		return t.SetReadPenalty(c.Millis)
	case SetWritePenalty:
		return t.SetWritePenalty(c.Millis)
	case ClearZoneConfig:
		t.ClearZoneConfig()
	case AddZoneConfig:
		return t.AddZoneConfig(c.Zone)
	case ModifyZoneConfig:
		return t.ModifyZoneConfig(c.Zone)
	case ResetDefaultConfig:
		t.ResetDefaultConfig()
	case ResetZoneConfig:
		t.ResetZoneConfig()
	case ResetDeviceConfig:
		t.ResetDeviceConfig()
	case SetBackwardPointerReset:
		t.SetBackwardPointerReset(c.Enable)
	case SetForwardPointerAdjust:
		t.SetForwardPointerAdjust(c.Enable)
	case SetBorderCrossPolicy:
		return t.SetBorderCrossPolicy(c.Zone, c.All, c.Mode)
	case SetLogging:
		t.SetLogging(c.Enable)
	case GetLastReadError:
		r.Violation = t.LastReadError()
	case GetLastWriteError:
		r.Violation = t.LastWriteError()
	case Sync:
		return t.Sync(ctx)
	default:
		return fmt.Errorf("unsupported command %s (%T)", cmd.Kind(), cmd)
	}
	return nil
}
