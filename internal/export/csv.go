package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// reportHeader lists export columns in order, shared by CSV and XLSX.
var reportHeader = []string{
	"Complaint ID",
	"Customer Name",
	"Meter No",
	"Meter Type",
	"Type of Issue",
	"Days Pending",
	"Assigned Staff",
	"Supervisor",
	"Escalation Flag",
	"Recurrent",
	"Timestamp",
	"Resolution Date",
}

// WriteCSV streams report rows as CSV.
func WriteCSV(w io.Writer, rows []domain.ReportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(csvRecord(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRecord(row domain.ReportRow) []string {
	return []string{
		row.ComplaintID,
		row.CustomerName,
		row.MeterNo,
		string(row.MeterType),
		row.IssueType,
		strconv.Itoa(row.DaysPending),
		row.AssignedTo,
		row.Supervisor,
		yesNo(row.Escalated),
		yesNo(row.Recurrent),
		row.LoggedAt.Format(time.RFC3339),
		formatResolvedAt(row.ResolvedAt),
	}
}

func yesNo(flag bool) string {
	if flag {
		return "Yes"
	}
	return "No"
}

func formatResolvedAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
