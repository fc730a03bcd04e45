package service

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// ComplaintCounter is the narrow store dependency used for id sequencing.
type ComplaintCounter interface {
	CountByIDPrefix(ctx context.Context, prefix string) (int, error)
}

// SequenceService derives the next human-facing complaint id for a period.
//
// The count-then-increment step is racy on its own; uniqueness is enforced by
// the store's constraint on complaint_id, and callers retry with a fresh
// candidate when an insert conflicts.
type SequenceService struct {
	counter ComplaintCounter
}

// NewSequenceService constructs the sequencer.
func NewSequenceService(counter ComplaintCounter) *SequenceService {
	return &SequenceService{counter: counter}
}

// Next produces a candidate identifier for the period, formatted YYYY-NNNN.
// The ordinal is one more than the count of ids already issued for the period.
func (s *SequenceService) Next(ctx context.Context, period string) (string, error) {
	count, err := s.counter.CountByIDPrefix(ctx, period+"-")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", period, count+1), nil
}

// PeriodFor returns the identifier-numbering period (calendar year, UTC) for a time.
func PeriodFor(t time.Time) string {
	return strconv.Itoa(t.UTC().Year())
}
