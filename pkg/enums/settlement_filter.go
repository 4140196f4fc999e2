package enums

import (
	"fmt"
	"strings"
)

// SettlementFilter narrows the detail list by the liquidado flag.
type SettlementFilter string

const (
	SettlementFilterUnsettled SettlementFilter = "unsettled"
	SettlementFilterSettled   SettlementFilter = "settled"
	SettlementFilterAll       SettlementFilter = "all"
)

var validSettlementFilters = []SettlementFilter{
	SettlementFilterUnsettled,
	SettlementFilterSettled,
	SettlementFilterAll,
}

// String implements fmt.Stringer.
func (f SettlementFilter) String() string {
	return string(f)
}

// IsValid reports whether the value is a known SettlementFilter.
func (f SettlementFilter) IsValid() bool {
	for _, candidate := range validSettlementFilters {
		if candidate == f {
			return true
		}
	}
	return false
}

// Flag returns the liquidado value the filter pins, or nil for "all".
func (f SettlementFilter) Flag() *bool {
	switch f {
	case SettlementFilterSettled:
		v := true
		return &v
	case SettlementFilterUnsettled:
		v := false
		return &v
	}
	return nil
}

// ParseSettlementFilter converts raw input into a SettlementFilter; empty input means unsettled.
func ParseSettlementFilter(value string) (SettlementFilter, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return SettlementFilterUnsettled, nil
	}
	for _, candidate := range validSettlementFilters {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement filter %q", value)
}
