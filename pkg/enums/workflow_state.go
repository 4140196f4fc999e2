package enums

import "fmt"

// WorkflowState is the settlement workflow state of a session.
type WorkflowState string

const (
	WorkflowStateBrowsing     WorkflowState = "browsing"
	WorkflowStateSelecting    WorkflowState = "selecting"
	WorkflowStatePreviewReady WorkflowState = "preview_ready"
	WorkflowStateConfirming   WorkflowState = "confirming"
	WorkflowStateCommitting   WorkflowState = "committing"
	WorkflowStateCommitted    WorkflowState = "committed"
)

var validWorkflowStates = []WorkflowState{
	WorkflowStateBrowsing,
	WorkflowStateSelecting,
	WorkflowStatePreviewReady,
	WorkflowStateConfirming,
	WorkflowStateCommitting,
	WorkflowStateCommitted,
}

// String implements fmt.Stringer.
func (s WorkflowState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WorkflowState.
func (s WorkflowState) IsValid() bool {
	for _, candidate := range validWorkflowStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWorkflowState converts raw input into a WorkflowState.
func ParseWorkflowState(value string) (WorkflowState, error) {
	for _, candidate := range validWorkflowStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workflow state %q", value)
}
