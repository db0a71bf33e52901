package howmany

import (
	"cmp"
	"math"
	"slices"

	"github.com/cockroachdb/errors"
)

// A ConversionEdge declares that an amount expressed in From, multiplied by
// Ratio, is the same amount expressed in To. For example, 1 square kilometre is
// 1,000,000 square metres:
//
//	ConversionEdge{From: "square kilometre", To: "square metre", Ratio: 1e6}
type ConversionEdge struct {
	From  Unit    `mapstructure:"from" yaml:"from" json:"from"`
	To    Unit    `mapstructure:"to" yaml:"to" json:"to"`
	Ratio float64 `mapstructure:"ratio" yaml:"ratio" json:"ratio"`
}

type unitPair struct {
	from, to Unit
}

// ConversionTable holds the known numeric ratios between compatible units. For
// every declared edge, the table also holds its inverse, so lookups are
// symmetric without declaring both directions.
//
// Only units connected by a declared (or inverted) edge are convertible; the
// table never chains conversions through an intermediate unit.
//
// A ConversionTable is immutable once constructed and safe for concurrent use.
type ConversionTable struct {
	ratios map[unitPair]float64
}

// NewConversionTable builds a ConversionTable from the given declared edges,
// synthesising the inverse (1/ratio) of each.
//
// Declaring the same pair more than once is harmless as long as the ratios
// agree; conflicting ratios for the same pair (including a declared edge that
// contradicts the inverse of another) fail the construction.
func NewConversionTable(edges ...ConversionEdge) (*ConversionTable, error) {
	t := &ConversionTable{ratios: make(map[unitPair]float64, 2*len(edges))}
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, errors.Newf("conversion edge %q -> %q: empty unit name", e.From, e.To)
		}
		if e.Ratio <= 0 || math.IsInf(e.Ratio, 0) || math.IsNaN(e.Ratio) {
			return nil, errors.Newf("conversion edge %q -> %q: ratio %v is not a positive finite number", e.From, e.To, e.Ratio)
		}
		if e.From == e.To {
			if !approxEqual(e.Ratio, 1) {
				return nil, errors.Newf("conversion edge %q -> %q: identity ratio must be 1, got %v", e.From, e.To, e.Ratio)
			}
			continue
		}
		if err := t.declare(e.From, e.To, e.Ratio); err != nil {
			return nil, err
		}
		if err := t.declare(e.To, e.From, 1/e.Ratio); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *ConversionTable) declare(from, to Unit, ratio float64) error {
	k := unitPair{from, to}
	if prev, ok := t.ratios[k]; ok && !approxEqual(prev, ratio) {
		return errors.Newf("conflicting ratios from %q to %q: %v != %v", from, to, prev, ratio)
	}
	t.ratios[k] = ratio
	return nil
}

// Ratio returns the factor that converts an amount in unit from into unit to.
// Converting a unit to itself always yields 1, whether or not the unit appears
// in the table.
//
// Ratio fails with ErrUnitNotConvertible if neither a declared nor an inverted
// edge exists between the two units.
func (t *ConversionTable) Ratio(from, to Unit) (float64, error) {
	if from == to {
		return 1, nil
	}
	r, ok := t.ratios[unitPair{from, to}]
	if !ok {
		return 0, UnitNotConvertible(from, to)
	}
	return r, nil
}

// Convert expresses the given quantity in the given unit.
func (t *ConversionTable) Convert(q Quantity, to Unit) (Quantity, error) {
	r, err := t.Ratio(q.Unit, to)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Amount: q.Amount * r, Unit: to}, nil
}

// Edges lists every convertible pair, declared and inverted alike, ordered by
// source then destination unit.
func (t *ConversionTable) Edges() []ConversionEdge {
	edges := make([]ConversionEdge, 0, len(t.ratios))
	for k, r := range t.ratios {
		edges = append(edges, ConversionEdge{From: k.from, To: k.to, Ratio: r})
	}
	slices.SortFunc(edges, func(a, b ConversionEdge) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return edges
}

// approxEqual compares ratios with a relative tolerance, enough to absorb the
// rounding of 1/(1/x).
func approxEqual(a, b float64) bool {
	const tolerance = 1e-9
	return math.Abs(a-b) <= tolerance*math.Max(math.Abs(a), math.Abs(b))
}
