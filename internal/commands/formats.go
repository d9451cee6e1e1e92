package commands

import (
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"unilog/pkg/types"
)

func newFormatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported log formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsers := e.app.Registry().Parsers()
			sort.Slice(parsers, func(i, j int) bool {
				return parsers[i].Name() < parsers[j].Name()
			})

			table := tablewriter.NewWriter(e.out)
			table.SetHeader([]string{"Parser", "Formats"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetHeaderLine(false)
			table.SetColumnSeparator("")
			table.SetTablePadding("  ")
			table.SetNoWhiteSpace(true)

			for _, p := range parsers {
				table.Append([]string{p.Name(), supportedFormats(p)})
			}
			table.Render()
			return nil
		},
	}
}

func supportedFormats(p types.Parser) string {
	return strings.Join(p.SupportedFormats(), ", ")
}
