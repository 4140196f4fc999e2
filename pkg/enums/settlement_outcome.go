package enums

import "fmt"

// SettlementOutcome summarizes how a confirmed batch ended.
type SettlementOutcome string

const (
	// SettlementOutcomeCommitted means every service in the batch was settled.
	SettlementOutcomeCommitted SettlementOutcome = "committed"
	// SettlementOutcomePartial means some, but not all, services were settled.
	SettlementOutcomePartial SettlementOutcome = "partial"
	// SettlementOutcomeFailed means no service was settled.
	SettlementOutcomeFailed SettlementOutcome = "failed"
)

var validSettlementOutcomes = []SettlementOutcome{
	SettlementOutcomeCommitted,
	SettlementOutcomePartial,
	SettlementOutcomeFailed,
}

// String implements fmt.Stringer.
func (o SettlementOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known SettlementOutcome.
func (o SettlementOutcome) IsValid() bool {
	for _, candidate := range validSettlementOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseSettlementOutcome converts raw input into a SettlementOutcome.
func ParseSettlementOutcome(value string) (SettlementOutcome, error) {
	for _, candidate := range validSettlementOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement outcome %q", value)
}
