// Package tracker records applications made with generated CVs.
//
// Valid status graph:
//
//	submitted ──► interview ──► offer ──► hired
//	    │             │           │
//	    └─────────────┴───────────┴──► rejected | withdrawn
//
// hired, rejected and withdrawn are terminal.
package tracker

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusHired     Status = "hired"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

var validTransitions = map[Status][]Status{
	StatusSubmitted: {StatusInterview, StatusRejected, StatusWithdrawn},
	StatusInterview: {StatusOffer, StatusRejected, StatusWithdrawn},
	StatusOffer:     {StatusHired, StatusRejected, StatusWithdrawn},
}

// ParseStatus converts a raw string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusSubmitted, StatusInterview, StatusOffer, StatusHired, StatusRejected, StatusWithdrawn:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}
