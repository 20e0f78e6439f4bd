package types

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryCriteria selects zones in a zone query. A positive value is a minimum
// number of free sectors; zero and negative values name fixed classes.
type QueryCriteria int32

const (
	// MatchAll selects every zone.
	MatchAll QueryCriteria = 0
	// MatchFull selects FULL zones.
	MatchFull QueryCriteria = -1
	// MatchPartial selects CLOSED zones with a non-zero write pointer.
	MatchPartial QueryCriteria = -2
	// MatchFree selects EMPTY zones.
	MatchFree QueryCriteria = -3
	// MatchReadOnly selects read-only zones.
	MatchReadOnly QueryCriteria = -4
	// MatchOffline selects offline zones.
	MatchOffline QueryCriteria = -5
	// MatchWPNotCheckpoint selects zones whose write pointer differs from the checkpoint offset.
	MatchWPNotCheckpoint QueryCriteria = -6
)

var criteriaNames = map[QueryCriteria]string{
	MatchAll:             "all",
	MatchFull:            "full",
	MatchPartial:         "partial",
	MatchFree:            "free",
	MatchReadOnly:        "readonly",
	MatchOffline:         "offline",
	MatchWPNotCheckpoint: "wp-ne-checkpoint",
}

// Valid reports whether the criteria is a free-sector threshold or a known class.
func (c QueryCriteria) Valid() bool {
	if c > 0 {
		return true
	}
	_, ok := criteriaNames[c]
	return ok
}

// MinFree returns the free-sector threshold and whether c is one.
func (c QueryCriteria) MinFree() (uint32, bool) {
	if c > 0 {
		return uint32(c), true
	}
	return 0, false
}

// String returns the class name or the threshold.
func (c QueryCriteria) String() string {
	if c > 0 {
		return fmt.Sprintf("free>=%d", int32(c))
	}
	if name, ok := criteriaNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int32(c))
}

// ParseQueryCriteria accepts a class name or a positive sector count.
func ParseQueryCriteria(s string) (QueryCriteria, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range criteriaNames {
		if name == s {
			return c, nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown query criteria %q", s)
	}
	c := QueryCriteria(n)
	if !c.Valid() {
		return 0, fmt.Errorf("unknown query criteria %d", n)
	}
	return c, nil
}
