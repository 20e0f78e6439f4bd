package app

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// DeviceTarget selects the backing image across commands
type DeviceTarget struct {
	Path       string
	Capacity   uint64
	Create     bool
	CachePages int
}

// Validate ensures the device target is usable
func (dt *DeviceTarget) Validate() error {
	if dt.Path == "" {
		return errors.New("device path is required")
	}
	if dt.Create && dt.Capacity == 0 {
		return errors.New("creating a device requires a capacity")
	}
	if dt.Capacity > types.MaxCapacitySectors {
		return fmt.Errorf("capacity %d exceeds maximum %d sectors", dt.Capacity, types.MaxCapacitySectors)
	}
	if dt.CachePages < 0 {
		return errors.New("cache pages must not be negative")
	}
	return nil
}

// String returns a string representation of the device target
func (dt *DeviceTarget) String() string {
	if dt.Capacity == 0 {
		return "Device: " + dt.Path
	}
	return fmt.Sprintf("Device: %s (%d sectors)", dt.Path, dt.Capacity)
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeDeviceAccess    = "DEVICE_ACCESS"
	ErrCodeConfiguration   = "CONFIGURATION"
	ErrCodePolicyViolation = "POLICY_VIOLATION"
	ErrCodePersistence     = "PERSISTENCE"
	ErrCodeTimeout         = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Classify wraps an engine error in a CommonError carrying the matching code.
// Errors that already are a CommonError pass through.
func Classify(message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommonError
	if errors.As(err, &ce) {
		return err
	}

	var pe *types.PolicyError
	switch {
	case errors.As(err, &pe):
		return NewError(ErrCodePolicyViolation, message, err)
	case errors.Is(err, types.ErrConfiguration):
		return NewError(ErrCodeConfiguration, message, err)
	case errors.Is(err, types.ErrPersistence):
		return NewError(ErrCodePersistence, message, err)
	default:
		return NewError(ErrCodeDeviceAccess, message, err)
	}
}

// CodeOf returns the code of a CommonError, or the empty string.
func CodeOf(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
