package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != BackoffLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.Initial != 500*time.Millisecond {
		t.Fatalf("expected initial 500ms got %v", p.Initial)
	}
	if p.MaxRetries != 2 {
		t.Fatalf("expected max retries 2 got %d", p.MaxRetries)
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != BackoffFixed {
		t.Fatalf("expected fixed mode got %s", p.Mode)
	}
	if p.MaxRetries != 5 {
		t.Fatalf("expected maxRetries 5 got %d", p.MaxRetries)
	}
	if q := NewPolicy("bogus", 0, 0, -1); q != DefaultPolicy() {
		t.Fatalf("expected defaults for invalid input got %+v", q)
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		mode    BackoffMode
		attempt int
		want    time.Duration
	}{
		{BackoffFixed, 3, 100 * ms},
		{BackoffLinear, 1, 100 * ms},
		{BackoffLinear, 2, 200 * ms},
		{BackoffLinear, 4, 250 * ms},
		{BackoffExponential, 1, 100 * ms},
		{BackoffExponential, 2, 200 * ms},
		{BackoffExponential, 3, 250 * ms},
		{BackoffExponential, 80, 250 * ms},
		{BackoffLinear, 0, 0},
	}
	for _, c := range cases {
		p := NewPolicy(c.mode, 100*ms, 250*ms, 5)
		if got := p.Delay(c.attempt); got != c.want {
			t.Errorf("%s attempt %d: expected %v got %v", c.mode, c.attempt, c.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	if err := (Policy{Initial: 0, Max: time.Second}).Validate(); err == nil {
		t.Fatal("expected error for zero initial")
	}
	if err := (Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative retries")
	}
}

func TestDo(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 2)
	errBoom := errors.New("boom")

	t.Run("succeeds after retries", func(t *testing.T) {
		calls, retries := 0, 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errBoom
			}
			return nil
		}, func(int, error) { retries++ })
		if err != nil || calls != 3 || retries != 2 {
			t.Fatalf("err=%v calls=%d retries=%d", err, calls, retries)
		}
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return errBoom
		}, nil)
		if !errors.Is(err, errBoom) || calls != 3 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := NewPolicy(BackoffFixed, time.Hour, time.Hour, 3)
		calls := 0
		err := slow.Do(ctx, func(context.Context) error {
			calls++
			cancel()
			return errBoom
		}, nil)
		if !errors.Is(err, context.Canceled) || !errors.Is(err, errBoom) || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})
}
