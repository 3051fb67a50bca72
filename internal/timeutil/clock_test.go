package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	t.Parallel()

	clock := RealClock{}
	before := time.Now()
	got := clock.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want within [%v, %v]", got, before, after)
	}
}

func TestMockClock_Now(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	clock := NewMockClock(frozen)

	if !clock.Now().Equal(frozen) {
		t.Errorf("Now() = %v, want %v", clock.Now(), frozen)
	}
	// Repeated reads do not drift.
	if !clock.Now().Equal(frozen) {
		t.Errorf("second Now() = %v, want %v", clock.Now(), frozen)
	}
}

func TestMockClock_Set(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	later := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock.Set(later)

	if !clock.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", clock.Now(), later)
	}
}

func TestMockClock_Advance(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(time.Hour)
	clock.Advance(30 * time.Minute)

	want := start.Add(90 * time.Minute)
	if !clock.Now().Equal(want) {
		t.Errorf("Now() after advances = %v, want %v", clock.Now(), want)
	}
}

func TestMockClock_SleepRecordsWithoutBlocking(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	clock.Sleep(time.Second)
	clock.Sleep(2 * time.Second)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("recorded %d sleeps, want 2", len(sleeps))
	}
	if sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("recorded sleeps = %v, want [1s 2s]", sleeps)
	}
	// Sleep must not move the clock; only Advance and Set do.
	if !clock.Now().Equal(time.Unix(0, 0)) {
		t.Errorf("Sleep moved the clock to %v", clock.Now())
	}
}

func TestMockClock_SleepsReturnsCopy(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	clock.Sleep(time.Second)

	got := clock.Sleeps()
	got[0] = time.Hour
	if clock.Sleeps()[0] != time.Second {
		t.Error("mutating the returned slice changed the recorded sleeps")
	}
}
