package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	loggedAt := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	resolvedAt := time.Date(2026, 8, 27, 16, 30, 0, 0, time.UTC)

	rows := []domain.ReportRow{
		{
			ComplaintID:  "2026-0001",
			CustomerName: "Jane Wanjiku",
			MeterNo:      "MTR-1001",
			MeterType:    domain.MeterTypePostpaid,
			IssueType:    "No Power",
			DaysPending:  4,
			AssignedTo:   "Peter Otieno",
			Supervisor:   "Grace Kilonzo",
			Escalated:    true,
			Recurrent:    true,
			LoggedAt:     loggedAt,
		},
		{
			ComplaintID:  "2026-0002",
			CustomerName: "Ali Hassan",
			MeterNo:      "MTR-2002",
			MeterType:    domain.MeterTypePrepaid,
			IssueType:    "Token Not Generated",
			DaysPending:  0,
			AssignedTo:   "John Migeni",
			LoggedAt:     loggedAt,
			ResolvedAt:   &resolvedAt,
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(reportHeader, "|") {
		t.Fatalf("unexpected header: %v", records[0])
	}

	first := records[1]
	if first[0] != "2026-0001" || first[5] != "4" || first[8] != "Yes" || first[9] != "Yes" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if first[11] != "" {
		t.Fatalf("open complaint must have an empty resolution date, got %q", first[11])
	}

	second := records[2]
	if second[8] != "No" || second[9] != "No" {
		t.Fatalf("unexpected flags on second row: %v", second)
	}
	if second[11] != resolvedAt.Format(time.RFC3339) {
		t.Fatalf("unexpected resolution date %q", second[11])
	}
}
