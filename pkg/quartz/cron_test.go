package quartz

import (
	"testing"
	"time"
)

func TestCronTriggerFireTimeAfter(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tr, err := NewCronTrigger(NewKey("", "daily"), NewKey("", "j"), start, "0 0 12 * * *", "")
	if err != nil {
		t.Fatalf("NewCronTrigger error: %v", err)
	}

	got := tr.FireTimeAfter(start)
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("FireTimeAfter = %v, want %v", got, want)
	}

	// Fire times are clamped to the trigger's start.
	got = tr.FireTimeAfter(start.Add(-48 * time.Hour))
	if got == nil || !got.Equal(want) {
		t.Fatalf("FireTimeAfter before start = %v, want %v", got, want)
	}

	got = tr.FireTimeAfter(want)
	next := want.AddDate(0, 0, 1)
	if got == nil || !got.Equal(next) {
		t.Fatalf("FireTimeAfter on a fire time = %v, want %v", got, next)
	}
}

func TestCronTriggerFiveFieldExpression(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tr, err := NewCronTrigger(NewKey("", "hourly"), NewKey("", "j"), start, "30 * * * *", "")
	if err != nil {
		t.Fatalf("NewCronTrigger error: %v", err)
	}
	got := tr.FireTimeAfter(start)
	want := start.Add(30 * time.Minute)
	if got == nil || !got.Equal(want) {
		t.Fatalf("FireTimeAfter = %v, want %v", got, want)
	}
}

func TestCronTriggerTimezone(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tr, err := NewCronTrigger(NewKey("", "ny"), NewKey("", "j"), start, "0 0 9 * * *", "America/New_York")
	if err != nil {
		t.Fatalf("NewCronTrigger error: %v", err)
	}
	got := tr.FireTimeAfter(start)
	// 09:00 in New York is 14:00 UTC on a standard-time March morning.
	want := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("FireTimeAfter = %v, want %v", got, want)
	}
}

func TestCronTriggerValidation(t *testing.T) {
	t.Parallel()
	start := time.Now()
	if _, err := NewCronTrigger(NewKey("", "bad"), NewKey("", "j"), start, "not a cron", ""); err == nil {
		t.Fatal("expected error for invalid expression")
	}
	if _, err := NewCronTrigger(NewKey("", "bad"), NewKey("", "j"), start, "0 0 12 * * *", "Mars/Olympus"); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestCronTriggerEndTime(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tr, err := NewCronTrigger(NewKey("", "daily"), NewKey("", "j"), start, "0 0 12 * * *", "")
	if err != nil {
		t.Fatalf("NewCronTrigger error: %v", err)
	}
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	tr.EndTime = &end

	if got := tr.FireTimeAfter(start); got == nil {
		t.Fatal("expected a fire before the end time")
	}
	if got := tr.FireTimeAfter(start.AddDate(0, 0, 1)); got != nil {
		t.Fatalf("FireTimeAfter past end = %v, want nil", got)
	}
}
