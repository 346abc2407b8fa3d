package timing

import (
	"errors"
	"testing"
	"time"
)

func TestObserveRecordsDurationOnFailure(t *testing.T) {
	rec := NewRecorder()
	wantErr := errors.New("boom")

	err := rec.Observe("item-1", func() error {
		time.Sleep(5 * time.Millisecond)
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error back, got %v", err)
	}

	d, ok := rec.Get("item-1")
	if !ok {
		t.Fatal("expected a duration recorded for failed work")
	}
	if d < 5*time.Millisecond {
		t.Fatalf("recorded duration too small: %v", d)
	}
}

func TestStartStopRecordsElapsed(t *testing.T) {
	rec := NewRecorder()

	stop := rec.Start(TotalKey)
	time.Sleep(2 * time.Millisecond)
	elapsed := stop()

	if elapsed <= 0 {
		t.Fatalf("expected positive elapsed time, got %v", elapsed)
	}
	d, ok := rec.Get(TotalKey)
	if !ok {
		t.Fatal("expected total entry recorded")
	}
	if d != elapsed {
		t.Fatalf("expected recorded duration %v to equal returned %v", d, elapsed)
	}
}

func TestSecondsRoundsToFourDecimals(t *testing.T) {
	rec := NewRecorder()
	rec.Record("a", 123456700*time.Nanosecond)
	rec.Record("b", 120*time.Microsecond)
	rec.Record("c", 20*time.Microsecond)

	out := rec.Seconds()
	if out["a"] != 0.1235 {
		t.Fatalf("expected 0.1235, got %v", out["a"])
	}
	if out["b"] != 0.0001 {
		t.Fatalf("expected 0.0001, got %v", out["b"])
	}
	if out["c"] != 0 {
		t.Fatalf("expected sub-resolution duration to round to 0, got %v", out["c"])
	}
}

func TestSecondsSnapshotsEveryEntry(t *testing.T) {
	rec := NewRecorder()
	rec.Record("1", time.Millisecond)
	rec.Record("2", 2*time.Millisecond)
	rec.Record(TotalKey, 3*time.Millisecond)

	out := rec.Seconds()
	if len(out) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out))
	}
	for _, label := range []string{"1", "2", TotalKey} {
		if _, ok := out[label]; !ok {
			t.Fatalf("missing entry for %q", label)
		}
	}
}

func TestRecordReplacesPreviousEntry(t *testing.T) {
	rec := NewRecorder()
	rec.Record("item", time.Second)
	rec.Record("item", time.Millisecond)

	d, _ := rec.Get("item")
	if d != time.Millisecond {
		t.Fatalf("expected later record to win, got %v", d)
	}
}
