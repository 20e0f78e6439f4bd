// Package engine owns one emulated zoned device: the zone directory, the
// policy checker, the statistics, and the persisted state. Every operation is
// a method on Engine and serializes on its state lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/device"
	"github.com/deploymenttheory/go-smrsim/internal/interfaces"
	"github.com/deploymenttheory/go-smrsim/internal/logger"
	"github.com/deploymenttheory/go-smrsim/internal/metrics"
	"github.com/deploymenttheory/go-smrsim/internal/persistence"
	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/stats"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/deploymenttheory/go-smrsim/internal/zones"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultFlushInterval is how often the background worker polls for dirty state.
const DefaultFlushInterval = time.Second

// Options configures a new Engine.
type Options struct {
	// Capacity is the emulated capacity in sectors. Required.
	Capacity uint64

	// DefaultZoneSectors is the zone size for a fresh layout. Zero selects the default.
	DefaultZoneSectors uint32

	// DeviceConfig seeds the policy configuration of a fresh layout. Nil
	// selects the built-in defaults. A loaded state keeps its own.
	DeviceConfig *types.DeviceConfig

	// FlushInterval is the dirty-state poll interval. Zero selects DefaultFlushInterval.
	FlushInterval time.Duration

	// CheckpointSchedule is an optional cron spec forcing a full checkpoint.
	CheckpointSchedule string

	// Research holds the initial research overrides.
	Research policy.Options

	// Debug raises per-request decisions to info level.
	Debug bool

	Logger  *logger.Logger
	Metrics *metrics.Collector
	Clock   stats.Clock
}

// Engine is one attached emulated device.
type Engine struct {
	id  uuid.UUID
	dev interfaces.BlockDevice
	log *logger.Logger
	met *metrics.Collector

	// mu is the state lock. It guards everything below it.
	mu        sync.Mutex
	table     *zones.Table
	agg       *stats.Aggregator
	checker   *policy.Checker
	tracker   *persistence.Tracker
	debug     bool
	lastRead  types.ViolationCode
	lastWrite types.ViolationCode

	store    *persistence.Store
	flushMu  sync.Mutex
	interval time.Duration
	sched    *cron.Cron
	stop     chan struct{}
	done     chan struct{}
	closed   sync.Once
}

// Open attaches an engine to dev. The persisted state at the end of the
// emulated capacity is loaded if valid; otherwise the default layout is
// built and persisted at once. The background flush worker starts before
// Open returns.
func Open(ctx context.Context, dev interfaces.BlockDevice, opts Options) (*Engine, error) {
	if dev == nil {
		return nil, errors.New("engine: nil backing device")
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector(metrics.Config{}, nil)
	}
	if opts.DeviceConfig != nil {
		if opts.DeviceConfig.ReadPenaltyMillis >= types.MaxPenaltyMillis || opts.DeviceConfig.WritePenaltyMillis >= types.MaxPenaltyMillis {
			return nil, types.NewConfigError("penalty must be below %d ms", types.MaxPenaltyMillis)
		}
	}

	agg := stats.NewAggregator(opts.Clock, 0)
	table, err := zones.NewTable(opts.Capacity, opts.DefaultZoneSectors, agg)
	if err != nil {
		return nil, fmt.Errorf("failed to build zone table: %w", err)
	}

	id := uuid.New()
	e := &Engine{
		id:       id,
		dev:      dev,
		log:      opts.Logger.Named("engine").With("instance", id.String()),
		met:      opts.Metrics,
		table:    table,
		agg:      agg,
		checker:  policy.NewChecker(table, opts.Research),
		tracker:  persistence.NewTracker(),
		debug:    opts.Debug,
		store:    persistence.NewStore(dev, device.StateOffset(opts.Capacity)),
		interval: opts.FlushInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if opts.CheckpointSchedule != "" {
		e.sched = cron.New()
		if _, err := e.sched.AddFunc(opts.CheckpointSchedule, e.scheduledCheckpoint); err != nil {
			return nil, types.NewConfigError("invalid checkpoint schedule %q: %v", opts.CheckpointSchedule, err)
		}
	}

	if err := e.bootstrap(ctx, opts.DeviceConfig); err != nil {
		return nil, err
	}

	go e.worker()
	if e.sched != nil {
		e.sched.Start()
	}

	e.log.Info("engine attached",
		"capacity", opts.Capacity,
		"zones", e.table.NumZones(),
		"zone_size", e.table.ZoneSize(),
		"state_offset", e.store.Offset(),
	)
	return e, nil
}

// bootstrap loads the persisted state or falls back to the default layout.
func (e *Engine) bootstrap(ctx context.Context, seed *types.DeviceConfig) error {
	state, err := e.store.Load()
	if err == nil {
		err = e.restore(state)
	}
	if err == nil {
		e.met.SetZones(e.table.NumZones())
		return nil
	}

	e.log.Warn("persisted state unusable, reinitializing defaults", err)
	e.met.RecordError("load")

	e.mu.Lock()
	if rerr := e.table.InitializeDefault(e.table.Capacity()); rerr != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to initialize default layout: %w", rerr)
	}
	if seed != nil {
		e.table.SetConfig(*seed)
	}
	e.tracker.MarkConfig()
	e.mu.Unlock()

	e.met.SetZones(e.table.NumZones())
	if ferr := e.flush(ctx); ferr != nil {
		e.log.Warn("initial state write failed, will retry", ferr)
	}
	return nil
}

func (e *Engine) restore(state *persistence.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.table.Restore(state.Config, state.Zones); err != nil {
		return err
	}
	return e.agg.Restore(&types.Stats{
		Device:   state.Idle,
		NumZones: state.NumZones(),
		Zones:    state.Stats,
	})
}

// ID returns the instance identifier carried in every log entry.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Sync flushes all dirty state and syncs the backing device.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.flush(ctx); err != nil {
		return err
	}
	return e.dev.Sync()
}

// Close stops the background worker and the checkpoint schedule, waits for
// both, and writes any remaining dirty state. The backing device stays open.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closed.Do(func() {
		close(e.stop)
		if e.sched != nil {
			stopped := e.sched.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
		select {
		case <-e.done:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		err = e.Sync(ctx)
		e.log.Info("engine detached")
	})
	return err
}
