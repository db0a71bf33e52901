package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/go-digitaltwin/howmany"
)

type compareFlags struct {
	containers      []string
	entities        []string
	containerAmount []float64
	entityAmount    []float64
	containerUnit   string
	entityUnit      string
	output          string
}

func newCompareCmd(a *app) *cobra.Command {
	var flags compareFlags
	cmd := &cobra.Command{
		Use:   "compare [CONTAINER ENTITY]",
		Short: "Compute how many entities fit inside containers",
		Long: `Compute how many of each entity fit inside each container, judged by a
property (area by default).

Containers and entities are given by ID or by their exact label in the
configured locale. Pass a single pair as arguments, or several with the
--container and --entity flags.

Literal amounts skip the knowledge store for a side: with --container-amount
(or --entity-amount) and the matching unit flag, the names given for that side
are used as labels and paired with the amounts in order.

Results are keyed by container: when several entities are compared with the
same container, only the last one is reported.`,
		Example: `  howmany compare Germany "football pitch"
  howmany compare -c Germany -c Luxembourg -e "football pitch"
  howmany compare -c "my garden" --container-amount 450 --container-unit "square metre" -e "football pitch"
  howmany compare --property length Q8524 Q1`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errors.Newf("accepts a container and an entity, received %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				flags.containers = append(flags.containers, args[0])
				flags.entities = append(flags.entities, args[1])
			}
			return a.compare(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.containers, "container", "c", nil, "container ID or label (repeatable)")
	f.StringArrayVarP(&flags.entities, "entity", "e", nil, "entity ID or label (repeatable)")
	f.Float64SliceVar(&flags.containerAmount, "container-amount", nil, "literal amounts of the containers")
	f.Float64SliceVar(&flags.entityAmount, "entity-amount", nil, "literal amounts of the entities")
	f.StringVar(&flags.containerUnit, "container-unit", "", "unit of the literal container amounts")
	f.StringVar(&flags.entityUnit, "entity-unit", "", "unit of the literal entity amounts")
	f.StringVarP(&flags.output, "output", "o", "table", "output format: table or json")
	return cmd
}

func (a *app) compare(cmd *cobra.Command, flags compareFlags) error {
	ctx := cmd.Context()
	if flags.output != "table" && flags.output != "json" {
		return errors.Newf("unknown output format %q", flags.output)
	}
	property, err := parseProperty(string(a.cfg.Property))
	if err != nil {
		return err
	}

	store, release, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	containers, err := a.side(cmd, store, flags.containers, flags.containerAmount, flags.containerUnit)
	if err != nil {
		return errors.Wrap(err, "containers")
	}
	entities, err := a.side(cmd, store, flags.entities, flags.entityAmount, flags.entityUnit)
	if err != nil {
		return errors.Wrap(err, "entities")
	}

	engine := howmany.NewEngine(store, a.conversions, a.dimensions)
	results, err := engine.Compare(ctx, howmany.Comparison{
		Containers: containers,
		Entities:   entities,
		Property:   property,
		Locale:     a.cfg.Locale,
	})
	if err != nil {
		return withResolutionHint(err)
	}

	rows := make([]ratioRow, 0, len(results))
	for _, label := range slices.Sorted(maps.Keys(results)) {
		r := results[label]
		rows = append(rows, ratioRow{Container: r.Container, Entity: r.Entity, Amount: r.Amount})
	}
	if flags.output == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	return renderRatios(cmd.OutOrStdout(), rows)
}

// side describes one role of a comparison. Names are looked up in the store,
// unless amounts are given.
func (a *app) side(cmd *cobra.Command, store knowledgeStore, names []string, amounts []float64, unit string) (howmany.Side, error) {
	if len(amounts) == 0 && unit != "" {
		return howmany.Side{}, errors.Wrapf(howmany.ErrInvalidRequest, "unit %q given without amounts", unit)
	}
	if len(amounts) > 0 {
		return howmany.Side{IDs: names, Amounts: amounts, Unit: howmany.Unit(unit)}, nil
	}
	ids, err := lookupIDs(cmd.Context(), store, names, a.cfg.Locale)
	if err != nil {
		return howmany.Side{}, err
	}
	return howmany.Side{IDs: ids}, nil
}

type ratioRow struct {
	Container string  `json:"container"`
	Entity    string  `json:"entity"`
	Amount    float64 `json:"amount"`
}

func renderRatios(w io.Writer, rows []ratioRow) error {
	data := pterm.TableData{{"Container", "Entity", "How many"}}
	for _, r := range rows {
		data = append(data, []string{r.Container, r.Entity, formatAmount(r.Amount)})
	}
	return renderTable(w, pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(data))
}

func renderTable(w io.Writer, t *pterm.TablePrinter) error {
	s, err := t.Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// formatAmount rounds ratios to two decimals, and keeps three significant
// digits of smaller ones.
func formatAmount(f float64) string {
	if f >= 1 {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return strconv.FormatFloat(f, 'g', 3, 64)
}

func writeJSON(w io.Writer, v any) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

// withResolutionHint suggests how to recover from unresolvable quantities.
func withResolutionHint(err error) error {
	switch {
	case errors.Is(err, howmany.ErrUnitNotConvertible):
		return errors.WithHint(err, "declare the missing conversion under 'units' in the configuration file")
	case errors.Is(err, howmany.ErrQuantityUnresolvable):
		return errors.WithHint(err, "the knowledge store lacks the property; try another property or literal amounts")
	}
	return err
}
