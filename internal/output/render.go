// Package output renders parsed records and correlation results for the
// terminal: aligned tables, JSON, injection-safe CSV and a compact
// one-line-per-record form.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"unilog/internal/security"
	"unilog/pkg/types"
)

// maxMessageWidth is where table cells get truncated.
const maxMessageWidth = 200

// levelColors maps severities to their terminal style.
var levelColors = map[types.Level]*color.Color{
	types.LevelEmergency: color.New(color.FgRed, color.Bold, color.ReverseVideo),
	types.LevelAlert:     color.New(color.FgRed, color.Bold, color.ReverseVideo),
	types.LevelCritical:  color.New(color.FgRed, color.Bold),
	types.LevelError:     color.New(color.FgRed),
	types.LevelWarning:   color.New(color.FgYellow),
	types.LevelNotice:    color.New(color.FgBlue),
	types.LevelInfo:      color.New(color.FgGreen),
	types.LevelDebug:     color.New(color.Faint),
	types.LevelTrace:     color.New(color.Faint, color.Italic),
}

func levelColor(level types.Level) *color.Color {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return color.New(color.FgWhite)
}

// RenderRecords dispatches on the output format name. Unknown names fall
// back to the table form.
func RenderRecords(w io.Writer, records []*types.Record, format string) error {
	switch format {
	case "json":
		return RenderJSON(w, records)
	case "csv":
		return RenderCSV(w, records)
	case "compact":
		return RenderCompact(w, records)
	default:
		return RenderTable(w, records)
	}
}

// RenderTable writes the records as an aligned table with a trailing
// entry count.
func RenderTable(w io.Writer, records []*types.Record) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Level", "Source", "Message"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, r := range records {
		table.Append([]string{
			r.FormattedTimestamp("2006-01-02 15:04:05"),
			levelColor(r.Level).Sprint(r.Level.String()),
			truncate(recordSource(r), 20),
			truncate(r.Message, maxMessageWidth),
		})
	}
	table.Render()

	_, err := fmt.Fprintf(w, "\nTotal: %d entries\n", len(records))
	return err
}

// RenderJSON writes the records as an indented JSON array in the mapping
// shape, levels by name and empty sub-records elided.
func RenderJSON(w io.Writer, records []*types.Record) error {
	out := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToMap())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// csvColumns is the fixed CSV schema.
var csvColumns = []string{
	"timestamp", "level", "message", "source_file", "line_number", "service", "format",
}

// RenderCSV writes the records as CSV. Every cell passes through the
// formula-injection sanitizer.
func RenderCSV(w io.Writer, records []*types.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return err
	}
	for _, r := range records {
		timestamp := ""
		if r.Timestamp != nil {
			timestamp = r.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00")
		}
		lineNumber := ""
		if r.Source.LineNumber > 0 {
			lineNumber = strconv.Itoa(r.Source.LineNumber)
		}
		row := []string{
			timestamp,
			r.Level.String(),
			r.Message,
			r.Source.FilePath,
			lineNumber,
			r.Source.Service,
			r.FormatDetected,
		}
		for i, cell := range row {
			row[i] = security.SanitizeCSVCell(cell)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// RenderCompact writes one line per record.
func RenderCompact(w io.Writer, records []*types.Record) error {
	for _, r := range records {
		if err := WriteCompact(w, r); err != nil {
			return err
		}
	}
	return nil
}

// WriteCompact writes a single record in the compact form used both by
// the compact renderer and the streaming path.
func WriteCompact(w io.Writer, r *types.Record) error {
	ts := "--------"
	if r.Timestamp != nil {
		ts = r.Timestamp.Format("15:04:05")
	}
	name := r.Level.String()
	if len(name) > 5 {
		name = name[:5]
	}
	level := levelColor(r.Level).Sprintf("%-5s", name)

	service := ""
	if r.Source.Service != "" {
		service = "[" + r.Source.Service + "] "
	}
	_, err := fmt.Fprintf(w, "%s %s %s%s\n", ts, level, service, r.Message)
	return err
}

// recordSource renders the source column: the service name when known,
// otherwise the base file name, with an optional line number.
func recordSource(r *types.Record) string {
	base := ""
	switch {
	case r.Source.Service != "":
		base = r.Source.Service
	case r.Source.FilePath != "":
		base = filepath.Base(r.Source.FilePath)
	}
	if r.Source.LineNumber > 0 {
		base += ":" + strconv.Itoa(r.Source.LineNumber)
	}
	if base == "" {
		return "-"
	}
	return base
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
