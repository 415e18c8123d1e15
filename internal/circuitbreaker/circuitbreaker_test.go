package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := cb.Call(failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d error = %v, want %v", i, err, errBoom)
		}
	}

	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := cb.Call(succeeding); !errors.Is(err, ErrOpen) {
		t.Errorf("Call() while open = %v, want %v", err, ErrOpen)
	}
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute})

	_ = cb.Call(failing)
	_ = cb.Call(failing)
	if err := cb.Call(succeeding); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	// The success reset the failure count.
	_ = cb.Call(failing)
	_ = cb.Call(failing)
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Millisecond})

	_ = cb.Call(failing)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(5 * time.Millisecond)

	// First probe moves to half-open; two successes close the circuit.
	if err := cb.Call(succeeding); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half_open after first probe", got)
	}
	if err := cb.Call(succeeding); err != nil {
		t.Fatalf("second probe error = %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Millisecond})

	_ = cb.Call(failing)
	time.Sleep(5 * time.Millisecond)

	if err := cb.Call(failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe error = %v, want %v", err, errBoom)
	}
	if got := cb.State(); got != StateOpen {
		t.Errorf("state = %v, want open after failed probe", got)
	}
	if err := cb.Call(succeeding); !errors.Is(err, ErrOpen) {
		t.Errorf("Call() = %v, want %v", err, ErrOpen)
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := New(Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Millisecond,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Call(failing)
	time.Sleep(5 * time.Millisecond)
	_ = cb.Call(succeeding)

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{})
	if cb.cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.cfg.FailureThreshold)
	}
	if cb.cfg.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d, want 2", cb.cfg.SuccessThreshold)
	}
	if cb.cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cb.cfg.Timeout)
	}
}
