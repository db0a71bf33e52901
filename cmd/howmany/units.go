package main

import (
	"cmp"
	"io"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/go-digitaltwin/howmany"
)

func newUnitsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the known unit conversions and dimensions",
		Long: `List the unit conversions and dimension decompositions in effect: the
defaults, extended by the configuration file.

Every conversion is listed in both directions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edges := a.conversions.Edges()
			slices.SortFunc(edges, func(x, y howmany.ConversionEdge) int {
				return cmp.Or(cmp.Compare(x.From, y.From), cmp.Compare(x.To, y.To))
			})
			dimensions := a.dimensions.Dimensions()
			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), unitsDocument{Conversions: edges, Dimensions: dimensions})
			}
			return renderUnits(cmd.OutOrStdout(), edges, dimensions)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	return cmd
}

type unitsDocument struct {
	Conversions []howmany.ConversionEdge `json:"conversions"`
	Dimensions  []howmany.Dimension      `json:"dimensions"`
}

func renderUnits(w io.Writer, edges []howmany.ConversionEdge, dimensions []howmany.Dimension) error {
	conversions := pterm.TableData{{"From", "To", "Ratio"}}
	for _, e := range edges {
		conversions = append(conversions, []string{string(e.From), string(e.To), formatRatio(e.Ratio)})
	}
	if err := renderTable(w, pterm.DefaultTable.WithHasHeader().WithData(conversions)); err != nil {
		return err
	}

	decompositions := pterm.TableData{{"Property", "Components"}}
	for _, d := range dimensions {
		components := make([]string, len(d.Components))
		for i, c := range d.Components {
			components[i] = string(c)
		}
		decompositions = append(decompositions, []string{string(d.Property), strings.Join(components, " × ")})
	}
	return renderTable(w, pterm.DefaultTable.WithHasHeader().WithData(decompositions))
}

func formatRatio(f float64) string {
	return pterm.Sprintf("%g", f)
}
