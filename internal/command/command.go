// Package command defines the management command set of the emulator and a
// dispatcher that routes each command to an engine.
package command

import (
	"fmt"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Kind identifies a command.
type Kind uint8

const (
	KindGetNumZones Kind = iota + 1
	KindGetDefaultZoneSize
	KindSetDefaultZoneSize
	KindResetZoneWritePointer
	KindQueryZones
	KindGetStats
	KindResetStats
	KindResetZoneStats
	KindGetDeviceConfig
	KindSetReadPolicy
	KindSetWritePolicy
	KindSetReadPenalty
	KindSetWritePenalty
	KindClearZoneConfig
	KindAddZoneConfig
	KindModifyZoneConfig
	KindResetDefaultConfig
	KindResetZoneConfig
	KindResetDeviceConfig
	KindSetBackwardPointerReset
	KindSetForwardPointerAdjust
	KindSetBorderCrossPolicy
	KindSetLogging
	KindGetLastReadError
	KindGetLastWriteError
	KindSync
)

var kindNames = map[Kind]string{
	KindGetNumZones:             "get-num-zones",
	KindGetDefaultZoneSize:      "get-default-zone-size",
	KindSetDefaultZoneSize:      "set-default-zone-size",
	KindResetZoneWritePointer:   "reset-zone-write-pointer",
	KindQueryZones:              "query-zones",
	KindGetStats:                "get-stats",
	KindResetStats:              "reset-stats",
	KindResetZoneStats:          "reset-zone-stats",
	KindGetDeviceConfig:         "get-device-config",
	KindSetReadPolicy:           "set-read-policy",
	KindSetWritePolicy:          "set-write-policy",
	KindSetReadPenalty:          "set-read-penalty",
	KindSetWritePenalty:         "set-write-penalty",
	KindClearZoneConfig:         "clear-zone-config",
	KindAddZoneConfig:           "add-zone-config",
	KindModifyZoneConfig:        "modify-zone-config",
	KindResetDefaultConfig:      "reset-default-config",
	KindResetZoneConfig:         "reset-zone-config",
	KindResetDeviceConfig:       "reset-device-config",
	KindSetBackwardPointerReset: "set-backward-pointer-reset",
	KindSetForwardPointerAdjust: "set-forward-pointer-adjust",
	KindSetBorderCrossPolicy:    "set-border-cross-policy",
	KindSetLogging:              "set-logging",
	KindGetLastReadError:        "get-last-read-error",
	KindGetLastWriteError:       "get-last-write-error",
	KindSync:                    "sync",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Command is one management request. The dispatcher accepts only the types
// declared in this package.
type Command interface {
	Kind() Kind
}

type (
	GetNumZones        struct{}
	GetDefaultZoneSize struct{}
	SetDefaultZoneSize struct{ Sectors uint32 }

	ResetZoneWritePointer struct{ LBA uint64 }

	QueryZones struct {
		LBA      uint64
		Criteria types.QueryCriteria
		Max      uint32
	}

	GetStats       struct{}
	ResetStats     struct{}
	ResetZoneStats struct{ LBA uint64 }

	GetDeviceConfig struct{}
	SetReadPolicy   struct{ Permit bool }
	SetWritePolicy  struct{ Permit bool }
	SetReadPenalty  struct{ Millis uint16 }
	SetWritePenalty struct{ Millis uint16 }

	ClearZoneConfig    struct{}
	AddZoneConfig      struct{ Zone types.ZoneDescriptor }
	ModifyZoneConfig   struct{ Zone types.ZoneDescriptor }
	ResetDefaultConfig struct{}
	ResetZoneConfig    struct{}
	ResetDeviceConfig  struct{}

	SetBackwardPointerReset struct{ Enable bool }
	SetForwardPointerAdjust struct{ Enable bool }

	// SetBorderCrossPolicy applies Mode to Zone, or to every zone when All is set.
	SetBorderCrossPolicy struct {
		Zone uint32
		All  bool
		Mode types.BorderCrossMode
	}

	SetLogging        struct{ Enable bool }
	GetLastReadError  struct{}
	GetLastWriteError struct{}
	Sync              struct{}
)

func (GetNumZones) Kind() Kind             { return KindGetNumZones }
func (GetDefaultZoneSize) Kind() Kind      { return KindGetDefaultZoneSize }
func (SetDefaultZoneSize) Kind() Kind      { return KindSetDefaultZoneSize }
func (ResetZoneWritePointer) Kind() Kind   { return KindResetZoneWritePointer }
func (QueryZones) Kind() Kind              { return KindQueryZones }
func (GetStats) Kind() Kind                { return KindGetStats }
func (ResetStats) Kind() Kind              { return KindResetStats }
func (ResetZoneStats) Kind() Kind          { return KindResetZoneStats }
func (GetDeviceConfig) Kind() Kind         { return KindGetDeviceConfig }
func (SetReadPolicy) Kind() Kind           { return KindSetReadPolicy }
func (SetWritePolicy) Kind() Kind          { return KindSetWritePolicy }
func (SetReadPenalty) Kind() Kind          { return KindSetReadPenalty }
func (SetWritePenalty) Kind() Kind         { return KindSetWritePenalty }
func (ClearZoneConfig) Kind() Kind         { return KindClearZoneConfig }
func (AddZoneConfig) Kind() Kind           { return KindAddZoneConfig }
func (ModifyZoneConfig) Kind() Kind        { return KindModifyZoneConfig }
func (ResetDefaultConfig) Kind() Kind      { return KindResetDefaultConfig }
func (ResetZoneConfig) Kind() Kind         { return KindResetZoneConfig }
func (ResetDeviceConfig) Kind() Kind       { return KindResetDeviceConfig }
func (SetBackwardPointerReset) Kind() Kind { return KindSetBackwardPointerReset }
func (SetForwardPointerAdjust) Kind() Kind { return KindSetForwardPointerAdjust }
func (SetBorderCrossPolicy) Kind() Kind    { return KindSetBorderCrossPolicy }
func (SetLogging) Kind() Kind              { return KindSetLogging }
func (GetLastReadError) Kind() Kind        { return KindGetLastReadError }
func (GetLastWriteError) Kind() Kind       { return KindGetLastWriteError }
func (Sync) Kind() Kind                    { return KindSync }
