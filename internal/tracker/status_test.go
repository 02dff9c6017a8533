package tracker

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusSubmitted, StatusInterview, true},
		{StatusInterview, StatusOffer, true},
		{StatusOffer, StatusHired, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusInterview, StatusWithdrawn, true},
		{StatusOffer, StatusRejected, true},
		{StatusSubmitted, StatusOffer, false},
		{StatusSubmitted, StatusHired, false},
		{StatusInterview, StatusSubmitted, false},
		{StatusHired, StatusRejected, false},
		{StatusRejected, StatusInterview, false},
		{StatusWithdrawn, StatusSubmitted, false},
		{StatusSubmitted, StatusSubmitted, false},
	}

	for _, tt := range tests {
		if got := IsTransitionAllowed(tt.from, tt.to); got != tt.want {
			t.Errorf("IsTransitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusHired, StatusRejected, StatusWithdrawn} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusSubmitted, StatusInterview, StatusOffer} {
		if IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(" Interview "); err != nil || s != StatusInterview {
		t.Fatalf("ParseStatus() = %q, %v", s, err)
	}
	if _, err := ParseStatus("ghosted"); err == nil {
		t.Fatalf("expected an error for an unknown status")
	}
}
