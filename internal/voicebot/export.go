package voicebot

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
)

// Format is an export file type.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	sheetName   = "Voicebot Calls"
	columnWidth = 20
	isoMillis   = "2006-01-02T15:04:05.000Z07:00"
)

// ExportFields is the column order of every export.
var ExportFields = []string{
	"cli",
	"language",
	"queryType",
	"ticketsIdentified",
	"receivedAt",
	"transferredToIvr",
	"durationSeconds",
	"callResolutionStatus",
}

// ParseFormat maps the format query parameter. An empty value means CSV and
// "xls" is served as XLSX.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "xls", "xlsx":
		return FormatXLSX, nil
	}
	return "", httpx.NewError(httpx.ErrValidation, "Unsupported format")
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename returns the attachment name of f.
func (f Format) Filename() string {
	return "voicebot_calls." + string(f)
}

// Write encodes calls in format f.
func Write(w io.Writer, f Format, calls []Call) error {
	if f == FormatXLSX {
		return WriteXLSX(w, calls)
	}
	return WriteCSV(w, calls)
}

// exportRow renders c in ExportFields order. Missing values become "".
func exportRow(c Call) []any {
	return []any{
		c.CLI,
		stringOrEmpty(c.Language),
		stringOrEmpty(c.QueryType),
		c.TicketsIdentified,
		c.ReceivedAt.UTC().Format(isoMillis),
		c.TransferredToIVR,
		intOrEmpty(c.DurationSeconds),
		stringOrEmpty(c.CallResolutionStatus),
	}
}

func stringOrEmpty(s *string) any {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}

// WriteCSV writes a header row and one record per call.
func WriteCSV(w io.Writer, calls []Call) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportFields); err != nil {
		return err
	}
	record := make([]string, len(ExportFields))
	for _, c := range calls {
		for i, v := range exportRow(c) {
			record[i] = csvValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// WriteXLSX writes a single-sheet workbook with a header row.
func WriteXLSX(w io.Writer, calls []Call) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("voicebot: xlsx sheet: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(ExportFields))
	if err != nil {
		return err
	}
	if err := book.SetColWidth(sheetName, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("voicebot: xlsx width: %w", err)
	}
	header := make([]any, len(ExportFields))
	for i, name := range ExportFields {
		header[i] = name
	}
	if err := book.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("voicebot: xlsx header: %w", err)
	}
	for i, c := range calls {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(c)
		if err := book.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("voicebot: xlsx row %d: %w", i+2, err)
		}
	}
	return book.Write(w)
}
