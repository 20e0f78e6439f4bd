package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-smrsim/internal/command"
	"github.com/deploymenttheory/go-smrsim/internal/config"
	"github.com/deploymenttheory/go-smrsim/internal/device"
	"github.com/deploymenttheory/go-smrsim/internal/engine"
	"github.com/deploymenttheory/go-smrsim/internal/logger"
	"github.com/deploymenttheory/go-smrsim/internal/metrics"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/fsnotify/fsnotify"
)

// Session is one attached device: the backing file, its engine and a
// dispatcher for management commands.
type Session struct {
	Target     DeviceTarget
	Device     *device.FileDevice
	Engine     *engine.Engine
	Dispatcher *command.Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.Collector
}

// TargetFromConfig builds a device target from the loaded configuration
func TargetFromConfig(cfg *config.Config) DeviceTarget {
	return DeviceTarget{
		Path:       cfg.Device.Path,
		Capacity:   cfg.Device.CapacitySectors,
		Create:     cfg.Device.Create,
		CachePages: cfg.Device.CachePages,
	}
}

// OpenSession opens the backing image named by cfg and attaches an engine to it.
func OpenSession(ctx *Context, cfg *config.Config) (*Session, error) {
	target := TargetFromConfig(cfg)
	if err := target.Validate(); err != nil {
		return nil, NewError(ErrCodeInvalidInput, "invalid device target", err)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Debug)
	if err != nil {
		return nil, NewError(ErrCodeConfiguration, "failed to create logger", err)
	}
	met := metrics.NewCollector(metrics.Config{Enabled: cfg.Metrics.Enabled}, nil)

	ctx.Log(fmt.Sprintf("Opening %s", target.String()))
	dev, err := device.OpenFile(target.Path, device.FileConfig{
		Create:     target.Create,
		Capacity:   target.Capacity,
		CachePages: target.CachePages,
	})
	if err != nil {
		return nil, NewError(ErrCodeDeviceAccess, "failed to open device", err)
	}

	capacity := target.Capacity
	if capacity == 0 {
		capacity = DeriveCapacity(dev.Size(), cfg.Zone.DefaultSectors)
		if capacity == 0 {
			dev.Close()
			return nil, NewError(ErrCodeInvalidInput, "device too small to derive a capacity", nil)
		}
		ctx.Log(fmt.Sprintf("Derived capacity: %d sectors", capacity))
	}

	seed := cfg.DeviceConfig()
	eng, err := engine.Open(ctx, dev, engine.Options{
		Capacity:           capacity,
		DefaultZoneSectors: cfg.Zone.DefaultSectors,
		DeviceConfig:       &seed,
		FlushInterval:      cfg.Persistence.Interval,
		CheckpointSchedule: cfg.Persistence.Schedule,
		Research:           cfg.ResearchOptions(),
		Debug:              cfg.Log.Debug,
		Logger:             log,
		Metrics:            met,
	})
	if err != nil {
		dev.Close()
		return nil, Classify("failed to attach engine", err)
	}

	target.Capacity = capacity
	return &Session{
		Target:     target,
		Device:     dev,
		Engine:     eng,
		Dispatcher: command.NewDispatcher(eng, log),
		Logger:     log,
		Metrics:    met,
	}, nil
}

// Apply pushes the reloadable settings of cfg into the attached engine: the
// policy configuration, the research overrides and decision logging.
func (s *Session) Apply(cfg *config.Config) error {
	if err := s.Engine.SetDeviceConfig(cfg.DeviceConfig()); err != nil {
		return Classify("failed to apply policy", err)
	}
	research := cfg.ResearchOptions()
	s.Engine.SetBackwardPointerReset(research.BackwardReset)
	s.Engine.SetForwardPointerAdjust(research.ForwardAdjust)
	s.Engine.SetBorderCrossMatch(research.BorderCrossMatch)
	s.Engine.SetLogging(cfg.Log.Debug)
	return nil
}

// Watch applies every valid reload of the loader's config file. Invalid
// reloads are logged and leave the engine untouched.
func (s *Session) Watch(loader *config.Loader) {
	log := s.Logger.Named("config")
	loader.Watch(func(cfg *config.Config, e fsnotify.Event, err error) {
		if err != nil {
			log.Warn("ignoring config reload", "file", e.Name, err)
			return
		}
		if err := s.Apply(cfg); err != nil {
			log.Error("failed to apply config reload", "file", e.Name, err)
			return
		}
		log.Info("config reloaded", "file", e.Name, "op", e.Op.String())
	})
}

// Close detaches the engine, flushing its state, then closes the device.
func (s *Session) Close(ctx context.Context) error {
	engErr := s.Engine.Close(ctx)
	devErr := s.Device.Close()
	s.Logger.Sync()
	if err := errors.Join(engErr, devErr); err != nil {
		return Classify("failed to close device", err)
	}
	return nil
}

// DeriveCapacity returns the largest whole-zone capacity whose data and
// persisted state fit in size bytes. zoneSectors of zero selects the default.
func DeriveCapacity(size int64, zoneSectors uint32) uint64 {
	if zoneSectors == 0 {
		zoneSectors = types.DefaultZoneSectors
	}
	perZone := types.SectorsToBytes(uint64(zoneSectors)) + types.ZoneStatsSize + types.ZoneDescriptorSize
	n := uint64(size / perZone)
	if limit := types.MaxCapacitySectors / uint64(zoneSectors); n > limit {
		n = limit
	}
	for n > 0 {
		capacity := n * uint64(zoneSectors)
		if device.ImageSize(capacity, uint32(n)) <= size {
			return capacity
		}
		n--
	}
	return 0
}
