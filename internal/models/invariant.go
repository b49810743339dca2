package models

// Invariant is a user-authored rule parsed from the invariants file.
type Invariant struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Principle   string `json:"principle,omitempty"`
	Description string `json:"description,omitempty"`
}

// InvariantStatus is the outcome of checking one invariant against a note.
type InvariantStatus string

const (
	InvariantPass      InvariantStatus = "pass"
	InvariantViolated  InvariantStatus = "violated"
	InvariantUnchecked InvariantStatus = "unchecked"
	InvariantError     InvariantStatus = "error"
)

// InvariantResult pairs an invariant with its check outcome.
type InvariantResult struct {
	Invariant Invariant       `json:"invariant"`
	Status    InvariantStatus `json:"status"`
	Reason    string          `json:"reason,omitempty"`
}
