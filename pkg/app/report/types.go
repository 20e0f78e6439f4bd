package report

import (
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// Value is a single named result such as a zone count
type Value struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// ZoneList is the result of a zone query
type ZoneList struct {
	Criteria string                 `json:"criteria" yaml:"criteria"`
	Zones    []types.ZoneDescriptor `json:"zones" yaml:"zones"`
}

// StatsReport wraps the statistics block. Zones without any violation are
// left out of the table unless All is set.
type StatsReport struct {
	Stats *types.Stats `json:"stats" yaml:"stats"`
	All   bool         `json:"-" yaml:"-"`
}

// Violation is a last-error register reading
type Violation struct {
	Direction string `json:"direction" yaml:"direction"`
	Code      int32  `json:"code" yaml:"code"`
	Name      string `json:"name" yaml:"name"`
}

// NewViolation builds a Violation for direction
func NewViolation(direction string, code types.ViolationCode) Violation {
	return Violation{Direction: direction, Code: int32(code), Name: code.String()}
}

// IOResult summarizes one read or write submitted through the policy engine
type IOResult struct {
	Direction  string        `json:"direction" yaml:"direction"`
	LBA        uint64        `json:"lba" yaml:"lba"`
	Sectors    uint32        `json:"sectors" yaml:"sectors"`
	Zone       uint32        `json:"zone" yaml:"zone"`
	Outcome    string        `json:"outcome" yaml:"outcome"`
	Violations []string      `json:"violations,omitempty" yaml:"violations,omitempty"`
	Penalty    time.Duration `json:"penalty" yaml:"penalty"`
	Override   string        `json:"override,omitempty" yaml:"override,omitempty"`
	Output     string        `json:"output,omitempty" yaml:"output,omitempty"`
}

// NewIOResult builds an IOResult from a policy decision
func NewIOResult(d policy.Decision, sectors uint32) IOResult {
	r := IOResult{
		Direction: d.Dir.String(),
		LBA:       d.LBA,
		Sectors:   sectors,
		Zone:      d.Zone,
		Penalty:   d.Penalty,
	}
	switch {
	case d.OutOfPolicy():
		r.Outcome = "out-of-policy"
	case d.Accepted():
		r.Outcome = "ok"
	default:
		r.Outcome = "rejected: " + d.Code.String()
	}
	for _, v := range d.Violations {
		r.Violations = append(r.Violations, v.String())
	}
	if d.Override != policy.OverrideNone {
		r.Override = d.Override.String()
	}
	return r
}
