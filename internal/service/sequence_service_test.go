package service

import (
	"context"
	"testing"
	"time"
)

type staticCounter struct {
	count      int
	err        error
	lastPrefix string
}

func (c *staticCounter) CountByIDPrefix(_ context.Context, prefix string) (int, error) {
	c.lastPrefix = prefix
	return c.count, c.err
}

func TestNextFormatsZeroPaddedOrdinal(t *testing.T) {
	counter := &staticCounter{count: 41}
	svc := NewSequenceService(counter)

	id, err := svc.Next(context.Background(), "2026")
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if id != "2026-0042" {
		t.Fatalf("expected 2026-0042, got %s", id)
	}
	if counter.lastPrefix != "2026-" {
		t.Fatalf("counter must be scoped to the period prefix, got %q", counter.lastPrefix)
	}
}

func TestNextDoesNotPadBeyondFourDigits(t *testing.T) {
	counter := &staticCounter{count: 9999}
	svc := NewSequenceService(counter)

	id, err := svc.Next(context.Background(), "2026")
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if id != "2026-10000" {
		t.Fatalf("expected 2026-10000, got %s", id)
	}
}

func TestPeriodForUsesUTCYear(t *testing.T) {
	// 23:30 Dec 31 in UTC-5 is already Jan 1 in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2025, 12, 31, 23, 30, 0, 0, loc)

	if period := PeriodFor(local); period != "2026" {
		t.Fatalf("expected period 2026, got %s", period)
	}
}
