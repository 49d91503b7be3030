package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_NextDoublesUpToMax(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 350*time.Millisecond)

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, base := range want {
		got := b.Next()
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if got < lo || got > hi {
			t.Errorf("step %d: wait = %v, want within [%v, %v]", i, got, lo, hi)
		}
	}

	b.Reset()
	if got := b.Next(); got < 80*time.Millisecond || got > 120*time.Millisecond {
		t.Errorf("Next() after Reset = %v, want about 100ms", got)
	}
}

func TestNewBackoff_MaxBelowInitial(t *testing.T) {
	b := NewBackoff(time.Second, time.Millisecond)
	b.Next()
	if got := b.Next(); got < 800*time.Millisecond || got > 1200*time.Millisecond {
		t.Errorf("Next() = %v, want about 1s", got)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on cancellation")
	}

	if err := Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep(0) on canceled ctx = %v, want context.Canceled", err)
	}
}
