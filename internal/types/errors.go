package types

import (
	"errors"
	"fmt"
)

// ViolationCode classifies a data-path policy outcome. The numeric values are
// stable and are reported through the last-error registers.
type ViolationCode int32

const (
	ViolationNone          ViolationCode = 0
	ViolationReadBorder    ViolationCode = -200
	ViolationReadPointer   ViolationCode = -202
	ViolationWriteReadOnly ViolationCode = -220
	ViolationWriteFull     ViolationCode = -224
	ViolationWriteBorder   ViolationCode = -226
	ViolationWritePointer  ViolationCode = -228
	ViolationWriteAlign    ViolationCode = -230
	ViolationOutOfRange    ViolationCode = -240
	ViolationOutOfPolicy   ViolationCode = -242
	ViolationZoneOffline   ViolationCode = -244
)

var violationNames = map[ViolationCode]string{
	ViolationNone:          "none",
	ViolationReadBorder:    "read border",
	ViolationReadPointer:   "read pointer",
	ViolationWriteReadOnly: "write read-only",
	ViolationWriteFull:     "write full",
	ViolationWriteBorder:   "write border",
	ViolationWritePointer:  "write pointer",
	ViolationWriteAlign:    "write align",
	ViolationOutOfRange:    "out of range",
	ViolationOutOfPolicy:   "out of policy",
	ViolationZoneOffline:   "zone offline",
}

// Error makes a ViolationCode usable as a sentinel with errors.Is.
func (v ViolationCode) Error() string {
	if name, ok := violationNames[v]; ok {
		return name
	}
	return fmt.Sprintf("violation %d", int32(v))
}

// String returns the violation name.
func (v ViolationCode) String() string {
	return v.Error()
}

// PolicyError reports a rejected read or write.
type PolicyError struct {
	Code ViolationCode
	Zone uint32
	LBA  uint64
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy violation: %s (zone %d, lba %d)", e.Code, e.Zone, e.LBA)
}

// Unwrap exposes the violation code so errors.Is(err, ViolationWritePointer) works.
func (e *PolicyError) Unwrap() error {
	return e.Code
}

// ViolationOf extracts the violation code from err, or ViolationNone.
func ViolationOf(err error) ViolationCode {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ViolationNone
}

// ErrConfiguration is the sentinel wrapped by every ConfigError.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigError reports an invalid zone or device configuration request.
type ConfigError struct {
	Message string
}

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

var (
	// ErrPersistence is the sentinel wrapped by every PersistenceError.
	ErrPersistence = errors.New("persistence failure")

	// ErrBadMagic reports a persisted state without a valid magic value.
	ErrBadMagic = errors.New("state magic mismatch")

	// ErrCRCMismatch reports a persisted state whose checksum does not match.
	ErrCRCMismatch = errors.New("state crc mismatch")

	// ErrBadLength reports a persisted state whose length is inconsistent.
	ErrBadLength = errors.New("state length invalid")
)

// PersistenceError reports a backing-store failure or a corrupt persisted state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

// Is matches ErrPersistence as well as the wrapped cause.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
