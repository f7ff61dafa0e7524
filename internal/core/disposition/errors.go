package disposition

import (
	"errors"
	"fmt"
)

// ErrStructuralViolation marks snapshot data that breaks the tree invariants.
// It is fatal for derivations on the affected letter.
var ErrStructuralViolation = errors.New("structural violation")

// ViolationError describes a single structural violation.
type ViolationError struct {
	NodeID string
	Msg    string
}

func (e *ViolationError) Error() string {
	if e == nil {
		return ""
	}
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", ErrStructuralViolation.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: disposition %s: %s", ErrStructuralViolation.Error(), e.NodeID, e.Msg)
}

func (e *ViolationError) Unwrap() error { return ErrStructuralViolation }

func violationf(nodeID, format string, args ...any) error {
	return &ViolationError{NodeID: nodeID, Msg: fmt.Sprintf(format, args...)}
}
