package types

// Device Configuration
// Out-of-policy handling shared by every zone.

const (
	// DefaultPenaltyMillis is the default delay applied to permitted out-of-policy I/O.
	DefaultPenaltyMillis uint16 = 4000

	// MaxPenaltyMillis is the exclusive upper bound for a configured penalty.
	MaxPenaltyMillis uint16 = 10000
)

// DeviceConfig holds the device-wide policy configuration.
// Encoded size: 12 bytes.
type DeviceConfig struct {
	// OutOfPolicyRead is 0 to reject violating reads, 1 to satisfy them after a delay.
	OutOfPolicyRead uint32 `json:"out_of_policy_read" yaml:"out_of_policy_read"`

	// OutOfPolicyWrite is 0 to reject violating writes, 1 to satisfy them after a delay.
	OutOfPolicyWrite uint32 `json:"out_of_policy_write" yaml:"out_of_policy_write"`

	// ReadPenaltyMillis is the delay applied to a permitted violating read.
	ReadPenaltyMillis uint16 `json:"read_penalty_ms" yaml:"read_penalty_ms"`

	// WritePenaltyMillis is the delay applied to a permitted violating write.
	WritePenaltyMillis uint16 `json:"write_penalty_ms" yaml:"write_penalty_ms"`
}

// DeviceConfigSize is the encoded size of a DeviceConfig in bytes.
const DeviceConfigSize = 12

// DefaultDeviceConfig returns the built-in device configuration: reject all
// violations and use the default penalties.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		ReadPenaltyMillis:  DefaultPenaltyMillis,
		WritePenaltyMillis: DefaultPenaltyMillis,
	}
}

// ReadPermitted reports whether violating reads are satisfied.
func (c DeviceConfig) ReadPermitted() bool {
	return c.OutOfPolicyRead != 0
}

// WritePermitted reports whether violating writes are satisfied.
func (c DeviceConfig) WritePermitted() bool {
	return c.OutOfPolicyWrite != 0
}

// Passthrough reports whether both directions are permitted, in which case
// no penalty is applied at all.
func (c DeviceConfig) Passthrough() bool {
	return c.ReadPermitted() && c.WritePermitted()
}

// BoolFlag converts a permit switch to its on-disk value.
func BoolFlag(on bool) uint32 {
	if on {
		return 1
	}
	return 0
}
