package testutil

import (
	"fmt"
	"testing"
)

// AssertEqual checks that got == want and reports a descriptive error if not.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("expected:\n  %v\ngot:\n  %v", want, got)
	}
}

// AssertSQL renders a node to SQL and compares it with the expected string.
func AssertSQL(t *testing.T, node fmt.Stringer, expected string) {
	t.Helper()
	got := node.String()
	if got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
}
