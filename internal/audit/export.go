package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportFile is a rendered audit export ready to be sent as an attachment.
type ExportFile struct {
	Data        []byte
	ContentType string
	Filename    string
	Count       int
}

var exportHeaders = []string{"ID", "Timestamp", "User ID", "Event Type", "Severity", "Severity Level", "Source", "Details"}

// Export renders up to the maximum page of events from the last days days.
func (t *Trail) Export(ctx context.Context, format string, days int) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatJSON, FormatCSV, FormatXLSX:
	default:
		return nil, common.InvalidInputErrorf("unsupported export format %q; use json, csv or xlsx", format)
	}
	if days < 1 || days > 365 {
		return nil, common.InvalidInputError("days must be between 1 and 365")
	}

	started := time.Now()
	end := t.now().UTC()
	start := end.AddDate(0, 0, -days)
	page, err := t.FetchLogs(ctx, LogQuery{
		Limit:     constants.AuditMaxQueryLimit,
		StartDate: start.Format(time.RFC3339Nano),
		EndDate:   end.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}

	out := &ExportFile{
		Filename: fmt.Sprintf("audit_logs_%s.%s", end.Format("20060102_150405"), format),
		Count:    len(page.Logs),
	}
	switch format {
	case FormatJSON:
		out.ContentType = "application/json"
		out.Data, err = json.MarshalIndent(page.Logs, "", "  ")
	case FormatCSV:
		out.ContentType = "text/csv"
		out.Data, err = renderCSV(page.Logs)
	case FormatXLSX:
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		out.Data, err = renderXLSX(page.Logs)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	t.logger.Info("audit.export.ok",
		"format", format,
		"rows", out.Count,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return out, nil
}

func exportRow(ev entity.AuditEvent) []string {
	user := ""
	if ev.UserID != nil {
		user = *ev.UserID
	}
	details, _ := json.Marshal(ev.Details)
	return []string{
		ev.ID,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		user,
		ev.EventType,
		string(ev.Severity),
		strconv.Itoa(ev.SeverityLevel),
		ev.Source,
		string(details),
	}
}

func renderCSV(logs []entity.AuditEvent) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, err
	}
	for _, ev := range logs {
		if err := w.Write(exportRow(ev)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderXLSX(logs []entity.AuditEvent) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Audit Logs"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, ev := range logs {
		for c, v := range exportRow(ev) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // id
	_ = f.SetColWidth(sheet, "B", "B", 32) // timestamp
	_ = f.SetColWidth(sheet, "C", "C", 38) // user
	_ = f.SetColWidth(sheet, "D", "D", 30) // event type
	_ = f.SetColWidth(sheet, "H", "H", 80) // details

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
