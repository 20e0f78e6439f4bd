package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-smrsim/internal/types"
)

func TestDeviceTarget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		target  DeviceTarget
		wantErr bool
	}{
		{name: "existing image", target: DeviceTarget{Path: "disk.img"}},
		{name: "create with capacity", target: DeviceTarget{Path: "disk.img", Create: true, Capacity: 4096}},
		{name: "missing path", target: DeviceTarget{Capacity: 4096}, wantErr: true},
		{name: "create without capacity", target: DeviceTarget{Path: "disk.img", Create: true}, wantErr: true},
		{name: "capacity too large", target: DeviceTarget{Path: "disk.img", Capacity: types.MaxCapacitySectors + 1}, wantErr: true},
		{name: "negative cache", target: DeviceTarget{Path: "disk.img", CachePages: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeviceTarget_String(t *testing.T) {
	assert.Equal(t, "Device: disk.img", (&DeviceTarget{Path: "disk.img"}).String())
	assert.Equal(t, "Device: disk.img (2048 sectors)", (&DeviceTarget{Path: "disk.img", Capacity: 2048}).String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{
			name: "policy rejection",
			err:  &types.PolicyError{Code: types.ViolationWritePointer, Zone: 1, LBA: 1032},
			code: ErrCodePolicyViolation,
		},
		{
			name: "configuration",
			err:  types.NewConfigError("zone size %d is not a power of two", 1000),
			code: ErrCodeConfiguration,
		},
		{
			name: "persistence",
			err:  fmt.Errorf("flush: %w", &types.PersistenceError{Op: "write page", Err: errors.New("short write")}),
			code: ErrCodePersistence,
		},
		{
			name: "anything else",
			err:  errors.New("permission denied"),
			code: ErrCodeDeviceAccess,
		},
		{
			name: "already classified",
			err:  NewError(ErrCodeInvalidInput, "bad lba", nil),
			code: ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("operation failed", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify("nothing", nil))
	assert.Empty(t, CodeOf(errors.New("plain")))
}

func TestClassify_KeepsViolationCode(t *testing.T) {
	err := Classify("write failed", &types.PolicyError{Code: types.ViolationWriteFull})
	assert.ErrorIs(t, err, types.ViolationWriteFull)
	assert.Equal(t, types.ViolationWriteFull, types.ViolationOf(err))
	assert.Contains(t, err.Error(), "write failed: ")
}
