package backoff

import (
	"testing"
	"time"
)

func TestExponential_Doubles(t *testing.T) {
	e := Exponential{Initial: 100 * time.Millisecond, Max: 5 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := e.Delay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := Exponential{Initial: time.Second, Max: 5 * time.Second}

	if got := e.Delay(10); got != 5*time.Second {
		t.Errorf("expected cap at 5s, got %v", got)
	}
	// Huge attempts must not overflow into negative delays.
	if got := e.Delay(500); got != 5*time.Second {
		t.Errorf("expected cap for large attempt, got %v", got)
	}
}

func TestExponential_ZeroAndNegative(t *testing.T) {
	e := Exponential{Initial: time.Second, Max: 5 * time.Second}
	if got := e.Delay(-1); got != 0 {
		t.Errorf("expected 0 for negative attempt, got %v", got)
	}

	unset := Exponential{}
	if got := unset.Delay(3); got != 0 {
		t.Errorf("expected 0 for unset initial delay, got %v", got)
	}
}
