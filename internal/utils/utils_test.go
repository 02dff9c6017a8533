package utils

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestWaitForHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected nil for zero duration, got %v", err)
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Senior Go Developer":  "senior-go-developer",
		"  C++ / Rust (Remote)": "c-rust-remote",
		"":                     "",
		"Berlin, DE":           "berlin-de",
	}

	for input, expect := range tests {
		if got := Slug(input); got != expect {
			t.Fatalf("Slug(%q) = %q, want %q", input, got, expect)
		}
	}
}

func TestUniqueFold(t *testing.T) {
	t.Parallel()

	got := UniqueFold([]string{" Go ", "go", "", "Kubernetes", "  ", "GO"})
	want := []string{"Go", "Kubernetes"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := SplitList("React, TypeScript,,react"); !reflect.DeepEqual(got, []string{"React", "TypeScript"}) {
		t.Fatalf("unexpected split result: %v", got)
	}
}

func TestTruncateForLog(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "careers page located", limit: 0, want: ""},
		{in: "  short  ", limit: 10, want: "short"},
		{in: "extracting postings", limit: 10, want: "extracting..."},
		{in: "Разработчик Go", limit: 11, want: "Разработчик..."},
	}

	for _, tc := range cases {
		if got := TruncateForLog(tc.in, tc.limit); got != tc.want {
			t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}
