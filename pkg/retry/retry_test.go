package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Multiplier: 2}
}

func TestDo(t *testing.T) {
	boom := errors.New("boom")

	t.Run("SucceedsFirstTime", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil || calls != 1 {
			t.Errorf("err = %v, calls = %d; want nil, 1", err, calls)
		}
	})

	t.Run("RetriesTransient", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return Transient(boom)
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err = %v, calls = %d; want nil, 3", err, calls)
		}
	})

	t.Run("PermanentStopsImmediately", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("err = %v, calls = %d; want boom, 1", err, calls)
		}
	})

	t.Run("ExhaustedUnwrapsMarker", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastPolicy(4), func(ctx context.Context) error {
			calls++
			return Transient(boom)
		})
		if calls != 4 {
			t.Errorf("calls = %d, want 4", calls)
		}
		if err != boom {
			t.Errorf("err = %v, want the unwrapped cause", err)
		}
		if IsTransient(err) {
			t.Error("exhausted error should not carry the transient marker")
		}
	})

	t.Run("ZeroAttemptsRunsOnce", func(t *testing.T) {
		calls := 0
		Do(context.Background(), fastPolicy(0), func(ctx context.Context) error {
			calls++
			return Transient(boom)
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("CancelledDuringBackoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := Policy{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1}
		err := Do(ctx, p, func(ctx context.Context) error {
			cancel()
			return Transient(boom)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Transient(errors.New("503"))
		}
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Errorf("DoValue() = %d, %v; want 42, nil", v, err)
	}
}

func TestBackoff(t *testing.T) {
	p := Policy{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{6, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestTransientNil(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
