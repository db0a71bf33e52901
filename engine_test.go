package howmany

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"pgregory.net/rapid"
)

func lookup(ids ...EntityID) Side {
	s := Side{IDs: make([]string, len(ids))}
	for i, id := range ids {
		s.IDs[i] = string(id)
	}
	return s
}

func TestEngine_Compare(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	e := NewEngine(newFakeFetcher(), conversions, dimensions)

	tests := []struct {
		Name       string
		Comparison Comparison
		Want       map[string]RatioResult
	}{
		{
			// The pitch has no declared area; it is reconstructed from its
			// length and width, in kilometres.
			Name: "HowManyPitchesFitInGermany",
			Comparison: Comparison{
				Containers: lookup(germany),
				Entities:   lookup(pitch),
				Property:   Area,
				Locale:     "en",
			},
			Want: map[string]RatioResult{
				"Germany": {Container: "Germany", Entity: "football pitch", Amount: 357022 / 0.00714},
			},
		},
		{
			// The pitch leads, so Germany is resolved in square metres.
			Name: "HowManyGermaniesFitInAPitch",
			Comparison: Comparison{
				Containers: lookup(pitch),
				Entities:   lookup(germany),
				Property:   Area,
				Locale:     "en",
			},
			Want: map[string]RatioResult{
				"football pitch": {Container: "football pitch", Entity: "Germany", Amount: 7140 / 357022e6},
			},
		},
		{
			Name: "SeveralContainers",
			Comparison: Comparison{
				Containers: lookup(germany, luxembourg),
				Entities:   lookup(pitch),
				Property:   Area,
				Locale:     "en",
			},
			Want: map[string]RatioResult{
				"Germany":    {Container: "Germany", Entity: "football pitch", Amount: 357022 / 0.00714},
				"Luxembourg": {Container: "Luxembourg", Entity: "football pitch", Amount: 2586.4 / 0.00714},
			},
		},
		{
			// Results are keyed by container, so the last entity wins.
			Name: "SeveralEntitiesOverwrite",
			Comparison: Comparison{
				Containers: lookup(germany),
				Entities:   lookup(pitch, luxembourg),
				Property:   Area,
				Locale:     "en",
			},
			Want: map[string]RatioResult{
				"Germany": {Container: "Germany", Entity: "Luxembourg", Amount: 357022 / 2586.4},
			},
		},
		{
			Name: "LabelsInLocale",
			Comparison: Comparison{
				Containers: lookup(germany),
				Entities:   Side{IDs: []string{"Saarland"}, Amounts: []float64{2569.69}, Unit: "square kilometre"},
				Property:   Area,
				Locale:     "de",
			},
			Want: map[string]RatioResult{
				"Deutschland": {Container: "Deutschland", Entity: "Saarland", Amount: 357022 / 2569.69},
			},
		},
		{
			Name: "LiteralEntities",
			Comparison: Comparison{
				Containers: lookup(germany),
				Entities:   Side{IDs: []string{"tennis court"}, Amounts: []float64{260.87}, Unit: "square metre"},
				Property:   Area,
				Locale:     "en",
			},
			Want: map[string]RatioResult{
				"Germany": {Container: "Germany", Entity: "tennis court", Amount: 357022e6 / 260.87},
			},
		},
		{
			Name: "LiteralContainers",
			Comparison: Comparison{
				Containers: Side{IDs: []string{"Texas"}, Amounts: []float64{695662}, Unit: "square kilometre"},
				Entities:   lookup(germany),
				Property:   Area,
				Locale:     "en",
			},
			Want: map[string]RatioResult{
				"Texas": {Container: "Texas", Entity: "Germany", Amount: 695662.0 / 357022},
			},
		},
		{
			Name: "LiteralBoth",
			Comparison: Comparison{
				Containers: Side{IDs: []string{"a", "b"}, Amounts: []float64{2, 3}, Unit: "square kilometre"},
				Entities:   Side{IDs: []string{"c"}, Amounts: []float64{1e5}, Unit: "square metre"},
				Property:   Area,
			},
			Want: map[string]RatioResult{
				"a": {Container: "a", Entity: "c", Amount: 20},
				"b": {Container: "b", Entity: "c", Amount: 30},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := e.Compare(context.Background(), tt.Comparison)
			if err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if diff := cmp.Diff(tt.Want, got, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
				t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// When the containers' unit cannot express the entities, the engine retries
// with the entities leading.
func TestEngine_CompareFallback(t *testing.T) {
	// Square kilometres and square metres are not convertible here, but
	// kilometres and metres are.
	conversions, err := NewConversionTable(ConversionEdge{From: "kilometre", To: "metre", Ratio: 1e3})
	if err != nil {
		t.Fatalf("NewConversionTable() error = %v", err)
	}
	dimensions, err := NewDimensionRegistry(DefaultDimensions, []UnitPower{
		{Base: "metre", Exponent: 2, Unit: "square metre"},
		{Base: "kilometre", Exponent: 2, Unit: "square kilometre"},
	})
	if err != nil {
		t.Fatalf("NewDimensionRegistry() error = %v", err)
	}
	e := NewEngine(newFakeFetcher(), conversions, dimensions)

	got, err := e.Compare(context.Background(), Comparison{
		Containers: lookup(pitch),
		Entities:   lookup(luxembourg),
		Property:   Area,
		Locale:     "en",
	})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	want := map[string]RatioResult{
		"football pitch": {Container: "football pitch", Entity: "Luxembourg", Amount: 0.00714 / 2586.4},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
		t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_CompareFailures(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	e := NewEngine(newFakeFetcher(), conversions, dimensions)

	tests := []struct {
		Name       string
		Comparison Comparison
		WantErr    error
	}{
		{
			Name:       "EntityWithoutProperty",
			Comparison: Comparison{Containers: lookup(germany), Entities: lookup(blank), Property: Area, Locale: "en"},
			WantErr:    ErrQuantityUnresolvable,
		},
		{
			Name:       "ContainerWithoutProperty",
			Comparison: Comparison{Containers: lookup(halfPitch), Entities: lookup(germany), Property: Area, Locale: "en"},
			WantErr:    ErrQuantityUnresolvable,
		},
		{
			// Neither direction can convert square furlongs.
			Name:       "NotConvertibleEitherWay",
			Comparison: Comparison{Containers: lookup(farm), Entities: lookup(germany), Property: Area, Locale: "en"},
			WantErr:    ErrUnitNotConvertible,
		},
		{
			Name:       "ZeroEntity",
			Comparison: Comparison{Containers: lookup(germany), Entities: lookup(void), Property: Area, Locale: "en"},
			WantErr:    ErrDivisionByZero,
		},
		{
			Name: "ZeroLiteralEntity",
			Comparison: Comparison{
				Containers: lookup(germany),
				Entities:   Side{IDs: []string{"nothing"}, Amounts: []float64{0}, Unit: "square metre"},
				Property:   Area,
				Locale:     "en",
			},
			WantErr: ErrDivisionByZero,
		},
		{
			Name:       "MissingLabel",
			Comparison: Comparison{Containers: lookup(germany), Entities: lookup(pitch), Property: Area, Locale: "de"},
			WantErr:    ErrLabelNotFound,
		},
		{
			Name: "LiteralNotConvertible",
			Comparison: Comparison{
				Containers: Side{IDs: []string{"a"}, Amounts: []float64{1}, Unit: "square kilometre"},
				Entities:   Side{IDs: []string{"b"}, Amounts: []float64{1}, Unit: "kilometre"},
				Property:   Area,
			},
			WantErr: ErrUnitNotConvertible,
		},
		{
			Name:       "NoContainers",
			Comparison: Comparison{Entities: lookup(pitch), Property: Area},
			WantErr:    ErrInvalidRequest,
		},
		{
			Name:       "NoEntities",
			Comparison: Comparison{Containers: lookup(germany), Property: Area},
			WantErr:    ErrInvalidRequest,
		},
		{
			Name: "AmountsMismatch",
			Comparison: Comparison{
				Containers: Side{IDs: []string{"a", "b"}, Amounts: []float64{1}, Unit: "metre"},
				Entities:   lookup(pitch),
				Property:   Length,
			},
			WantErr: ErrInvalidRequest,
		},
		{
			Name: "AmountsWithoutUnit",
			Comparison: Comparison{
				Containers: Side{IDs: []string{"a"}, Amounts: []float64{1}},
				Entities:   lookup(pitch),
				Property:   Length,
			},
			WantErr: ErrInvalidRequest,
		},
		{
			Name: "NegativeAmount",
			Comparison: Comparison{
				Containers: Side{IDs: []string{"a"}, Amounts: []float64{-1}, Unit: "metre"},
				Entities:   lookup(pitch),
				Property:   Length,
			},
			WantErr: ErrInvalidQuantity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := e.Compare(context.Background(), tt.Comparison)
			if !errors.Is(err, tt.WantErr) {
				t.Fatalf("Compare() error = %v, want %v", err, tt.WantErr)
			}
			if got != nil {
				t.Errorf("Compare() = %v, want no results", got)
			}
		})
	}
}

// Swapping containers and entities inverts the ratio.
func TestEngine_CompareReciprocity(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	e := NewEngine(newFakeFetcher(), conversions, dimensions)
	entities := []EntityID{germany, luxembourg, pitch}

	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.SampledFrom(entities).Draw(rt, "a")
		b := rapid.SampledFrom(entities).Draw(rt, "b")

		forward := compareOne(rt, e, a, b)
		backward := compareOne(rt, e, b, a)
		if diff := cmp.Diff(1.0, forward*backward, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
			rt.Fatalf("%s/%s = %v and %s/%s = %v do not multiply to 1 (-want +got):\n%s", a, b, forward, b, a, backward, diff)
		}
	})
}

// compareOne returns how many b fit inside a, by area.
func compareOne(rt *rapid.T, e *Engine, a, b EntityID) float64 {
	results, err := e.Compare(context.Background(), Comparison{
		Containers: lookup(a),
		Entities:   lookup(b),
		Property:   Area,
		Locale:     "en",
	})
	if err != nil {
		rt.Fatalf("Compare(%s, %s) error = %v", a, b, err)
	}
	if len(results) != 1 {
		rt.Fatalf("Compare(%s, %s) = %v, want a single result", a, b, results)
	}
	for _, r := range results {
		return r.Amount
	}
	panic("unreachable")
}
