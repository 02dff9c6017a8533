package presenter

import "fmt"

// State is the discovery state of one company.
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateSuccess     State = "success"
	StateEmpty       State = "empty"
	StateFailed      State = "failed"
)

// PostingState tracks CV generation for one posting of a successful run.
type PostingState string

const (
	PostingUnviewed    PostingState = "unviewed"
	PostingCVRequested PostingState = "cv_requested"
	PostingCVReady     PostingState = "cv_ready"
)

var postingTransitions = map[PostingState][]PostingState{
	PostingUnviewed:    {PostingCVRequested},
	PostingCVRequested: {PostingCVReady, PostingUnviewed},
	// Another template may be requested once a CV is ready.
	PostingCVReady: {PostingCVRequested},
}

func postingTransitionAllowed(from, to PostingState) bool {
	for _, s := range postingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func stateFromOutcome(outcome string) State {
	switch outcome {
	case "success":
		return StateSuccess
	case "empty":
		return StateEmpty
	}
	return StateFailed
}

// TransitionError reports a rejected posting state change.
type TransitionError struct {
	PostingKey string
	From, To   PostingState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("posting %s: %s -> %s is not allowed", e.PostingKey, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
