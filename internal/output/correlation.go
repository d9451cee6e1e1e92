package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"unilog/pkg/types"
)

// maxGroupRows bounds how many groups the table form displays.
const maxGroupRows = 50

// RenderCorrelation dispatches on the output format name.
func RenderCorrelation(w io.Writer, result *types.CorrelationResult, format string) error {
	if format == "json" {
		return RenderCorrelationJSON(w, result)
	}
	return RenderCorrelationTable(w, result)
}

// RenderCorrelationTable writes the groups as a table, capped at
// maxGroupRows rows.
func RenderCorrelationTable(w io.Writer, result *types.CorrelationResult) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Type", "Entries", "Sources", "Time Range"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	groups := result.Groups
	if len(groups) > maxGroupRows {
		groups = groups[:maxGroupRows]
	}
	for _, g := range groups {
		table.Append([]string{
			truncate(g.CorrelationKey, 30),
			g.CorrelationType,
			strconv.Itoa(g.Size()),
			groupSources(g),
			groupTimeRange(g),
		})
	}
	table.Render()

	if len(result.Groups) > maxGroupRows {
		if _, err := fmt.Fprintf(w, "\n(%d more groups not shown)\n", len(result.Groups)-maxGroupRows); err != nil {
			return err
		}
	}
	return nil
}

// correlationGroupJSON is the wire shape of one group in JSON output;
// member records are summarized to a count.
type correlationGroupJSON struct {
	ID              string    `json:"id"`
	CorrelationKey  string    `json:"correlation_key"`
	CorrelationType string    `json:"correlation_type"`
	EntryCount      int       `json:"entry_count"`
	Sources         []string  `json:"sources"`
	TimeRange       []*string `json:"time_range"`
}

type correlationResultJSON struct {
	Groups      []correlationGroupJSON `json:"groups"`
	OrphanCount int                    `json:"orphan_count"`
	Stats       types.CorrelationStats `json:"stats"`
}

// RenderCorrelationJSON writes a machine-readable summary of the result.
func RenderCorrelationJSON(w io.Writer, result *types.CorrelationResult) error {
	out := correlationResultJSON{
		Groups:      make([]correlationGroupJSON, 0, len(result.Groups)),
		OrphanCount: len(result.Orphans),
		Stats:       result.Stats,
	}
	for _, g := range result.Groups {
		out.Groups = append(out.Groups, correlationGroupJSON{
			ID:              g.ID.String(),
			CorrelationKey:  g.CorrelationKey,
			CorrelationType: g.CorrelationType,
			EntryCount:      g.Size(),
			Sources:         g.Sources,
			TimeRange:       []*string{formatTS(g.MinTimestamp), formatTS(g.MaxTimestamp)},
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// groupSources renders up to three base file names.
func groupSources(g *types.CorrelationGroup) string {
	names := make([]string, 0, 3)
	for _, s := range g.Sources {
		names = append(names, filepath.Base(s))
		if len(names) == 3 {
			break
		}
	}
	return strings.Join(names, ", ")
}

// groupTimeRange renders the covered span as HH:MM:SS - HH:MM:SS.
func groupTimeRange(g *types.CorrelationGroup) string {
	if g.MinTimestamp == nil || g.MaxTimestamp == nil {
		return ""
	}
	return g.MinTimestamp.Format("15:04:05") + " - " + g.MaxTimestamp.Format("15:04:05")
}

func formatTS(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	s := ts.Format(time.RFC3339Nano)
	return &s
}
