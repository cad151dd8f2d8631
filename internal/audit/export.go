package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"
)

// CSVHeader is the column order of the timeline export.
var CSVHeader = []string{"id", "createdAt", "userId", "userName", "userEmail", "action", "resource", "details", "ipAddress", "userAgent"}

// WriteCSV encodes rows with a header line. Details are written as compact JSON.
func WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		details, err := json.Marshal(row.Details)
		if err != nil {
			return nil, err
		}
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.At.UTC().Format(time.RFC3339),
			row.UserID,
			row.UserName,
			row.UserEmail,
			row.Action,
			row.Resource,
			string(details),
			row.IPAddress,
			row.UserAgent,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
