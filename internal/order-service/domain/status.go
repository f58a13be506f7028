package domain

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions lists the forward moves allowed out of each status.
// COMPLETED and CANCELLED are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// ParseStatus returns the Status named by s, or false if s is not one.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

// IsTerminal reports whether no status can follow s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ValidateTransition reports whether an order may move from s to next.
// Staying in the same status is always allowed.
func (s Status) ValidateTransition(next Status) error {
	if s == next {
		return nil
	}
	if s.IsTerminal() {
		return &InvalidStatusTransitionError{From: s, To: next}
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return nil
		}
	}
	return &InvalidStatusTransitionError{From: s, To: next}
}
