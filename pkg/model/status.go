package model

// Status is the explicit progress marker of an Area's exploration.
// It advances monotonically within a run; only StatusFailed is reachable
// from any non-terminal state.
type Status string

const (
	StatusPending           Status = "pending"
	StatusInProgress        Status = "in_progress"
	StatusAmenitiesComplete Status = "amenities_complete"
	StatusNatureComplete    Status = "nature_complete"
	StatusCrimeComplete     Status = "crime_complete"
	StatusComplete          Status = "complete"
	StatusFailed            Status = "failed"
)

// statusRank orders the forward progression. StatusFailed sits outside the
// ladder: it is a soft-terminal state, eligible for retry on a later run.
var statusRank = map[Status]int{
	StatusPending:           0,
	StatusInProgress:        1,
	StatusAmenitiesComplete: 2,
	StatusNatureComplete:    3,
	StatusCrimeComplete:     4,
	StatusComplete:          5,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether the area needs no further exploration.
// StatusFailed is deliberately not terminal: it is retried next run.
func (s Status) Terminal() bool {
	return s == StatusComplete
}

// Rank returns the forward-progress rank, or -1 for StatusFailed.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// CanTransition reports whether moving from s to next is a legal persisted
// write. Forward moves and the failure transition are allowed; regression
// from any rank, and any move out of StatusComplete, are not.
func (s Status) CanTransition(next Status) bool {
	if s == StatusComplete {
		return false
	}
	if next == StatusFailed {
		return true
	}
	if s == StatusFailed {
		// Retry path: a failed area resumes from in_progress.
		return next != StatusPending
	}
	return next.Rank() >= s.Rank()
}
