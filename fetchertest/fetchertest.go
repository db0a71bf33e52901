/*
Package fetchertest provides a suite of tests designed to assess knowledge
stores implementing [howmany.Fetcher] (e.g. in-memory, Wikidata, neo4j).

The suite works on a small fixed dataset. Seed the store under test with the
records returned by Dataset, then call fetchertest.Run in its own test:

	func TestStore(t *testing.T) {
		store := memstore.New(fetchertest.Dataset()...)
		fetchertest.Run(t, store)
	}

The test cases cover the behaviours a Resolver relies on:

  - Labels are returned per locale, and absent ones are reported with
    howmany.ErrLabelNotFound.
  - Declared units and amounts are returned as stored, and absent ones are
    reported with howmany.ErrPropertyNotFound, including for unknown entities.
  - A cancelled context stops the fetch.

Finally, the suite runs a comparison end-to-end through a howmany.Engine built
on the default tables. Specific stores are encouraged to perform additional
tests specific to their backend.
*/
package fetchertest

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-digitaltwin/howmany"
)

// Entities of the dataset.
const (
	Germany       howmany.EntityID = "Q183"
	Luxembourg    howmany.EntityID = "Q32"
	FootballPitch howmany.EntityID = "Q8524"
	// Unknown is not part of the dataset.
	Unknown howmany.EntityID = "Q999999999"
)

// Dataset returns the records every store under test must hold. Each call
// returns a fresh copy.
func Dataset() []howmany.EntityRecord {
	return []howmany.EntityRecord{
		{
			ID:     Germany,
			Labels: map[string]string{"en": "Germany", "de": "Deutschland"},
			Claims: map[howmany.PropertyID]howmany.Quantity{
				howmany.Area: {Amount: 357022, Unit: "square kilometre"},
			},
		},
		{
			ID:     Luxembourg,
			Labels: map[string]string{"en": "Luxembourg", "fr": "Luxembourg", "de": "Luxemburg"},
			Claims: map[howmany.PropertyID]howmany.Quantity{
				howmany.Area: {Amount: 2586.4, Unit: "square kilometre"},
			},
		},
		{
			ID:     FootballPitch,
			Labels: map[string]string{"en": "football pitch"},
			Claims: map[howmany.PropertyID]howmany.Quantity{
				howmany.Length: {Amount: 105, Unit: "metre"},
				howmany.Width:  {Amount: 68, Unit: "metre"},
			},
		},
	}
}

type testCase struct {
	name string
	// A path leading to the test-case's file and line in the source code.
	location string
	// Exercises the fetcher and returns unexpected problems.
	run func(ctx context.Context, f howmany.Fetcher) (problem string)
}

var cases = []testCase{
	{
		name:     "label-en",
		location: locateSource(),
		run:      wantLabel(Germany, "en", "Germany"),
	},
	{
		name:     "label-de",
		location: locateSource(),
		run:      wantLabel(Germany, "de", "Deutschland"),
	},
	{
		name:     "label-missing-locale",
		location: locateSource(),
		run:      wantLabelErr(FootballPitch, "de", howmany.ErrLabelNotFound),
	},
	{
		name:     "label-unknown-entity",
		location: locateSource(),
		run:      wantLabelErr(Unknown, "en", howmany.ErrLabelNotFound),
	},
	{
		name:     "declared-area",
		location: locateSource(),
		run:      wantQuantity(Germany, howmany.Area, howmany.Quantity{Amount: 357022, Unit: "square kilometre"}),
	},
	{
		name:     "declared-length",
		location: locateSource(),
		run:      wantQuantity(FootballPitch, howmany.Length, howmany.Quantity{Amount: 105, Unit: "metre"}),
	},
	{
		name:     "undeclared-property",
		location: locateSource(),
		run:      wantPropertyErr(FootballPitch, howmany.Area, howmany.ErrPropertyNotFound),
	},
	{
		name:     "unknown-entity",
		location: locateSource(),
		run:      wantPropertyErr(Unknown, howmany.Area, howmany.ErrPropertyNotFound),
	},
	{
		name:     "cancelled-context",
		location: locateSource(),
		run: func(ctx context.Context, f howmany.Fetcher) string {
			ctx, cancel := context.WithCancel(ctx)
			cancel()
			if _, err := f.FetchPropertyUnit(ctx, Germany, howmany.Area); err == nil {
				return "FetchPropertyUnit() with a cancelled context succeeded, want error"
			}
			return ""
		},
	},
	{
		name:     "compare-germany-with-football-pitches",
		location: locateSource(),
		run: func(ctx context.Context, f howmany.Fetcher) string {
			engine, err := defaultEngine(f)
			if err != nil {
				return err.Error()
			}
			got, err := engine.Compare(ctx, howmany.Comparison{
				Containers: howmany.Side{IDs: []string{string(Germany)}},
				Entities:   howmany.Side{IDs: []string{string(FootballPitch)}},
				Property:   howmany.Area,
				Locale:     "en",
			})
			if err != nil {
				return fmt.Sprintf("Compare() error = %v", err)
			}
			want := map[string]howmany.RatioResult{
				"Germany": {Container: "Germany", Entity: "football pitch", Amount: 357022 / (0.105 * 0.068)},
			}
			if diff := cmp.Diff(want, got, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
				return fmt.Sprintf("Compare() mismatch (-want +got):\n%v", diff)
			}
			return ""
		},
	},
}

// Run invokes the test-suite on the given fetcher, which must hold the records
// returned by Dataset.
func Run(t *testing.T, f howmany.Fetcher) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if problem := tc.run(context.Background(), f); problem != "" {
				t.Errorf("%s\n%s", tc.location, problem)
			}
		})
	}
}

func wantLabel(entity howmany.EntityID, locale, want string) func(context.Context, howmany.Fetcher) string {
	return func(ctx context.Context, f howmany.Fetcher) string {
		got, err := f.FetchLabel(ctx, entity, locale)
		if err != nil {
			return fmt.Sprintf("FetchLabel(%s, %q) error = %v", entity, locale, err)
		}
		if got != want {
			return fmt.Sprintf("FetchLabel(%s, %q) = %q, want %q", entity, locale, got, want)
		}
		return ""
	}
}

func wantLabelErr(entity howmany.EntityID, locale string, want error) func(context.Context, howmany.Fetcher) string {
	return func(ctx context.Context, f howmany.Fetcher) string {
		_, err := f.FetchLabel(ctx, entity, locale)
		if !errors.Is(err, want) {
			return fmt.Sprintf("FetchLabel(%s, %q) error = %v, want %v", entity, locale, err, want)
		}
		return ""
	}
}

func wantQuantity(entity howmany.EntityID, property howmany.PropertyID, want howmany.Quantity) func(context.Context, howmany.Fetcher) string {
	return func(ctx context.Context, f howmany.Fetcher) string {
		unit, err := f.FetchPropertyUnit(ctx, entity, property)
		if err != nil {
			return fmt.Sprintf("FetchPropertyUnit(%s, %s) error = %v", entity, property, err)
		}
		amount, err := f.FetchPropertyAmount(ctx, entity, property)
		if err != nil {
			return fmt.Sprintf("FetchPropertyAmount(%s, %s) error = %v", entity, property, err)
		}
		if diff := cmp.Diff(want, howmany.Quantity{Amount: amount, Unit: unit}); diff != "" {
			return fmt.Sprintf("%s of %s mismatch (-want +got):\n%v", property, entity, diff)
		}
		return ""
	}
}

func wantPropertyErr(entity howmany.EntityID, property howmany.PropertyID, want error) func(context.Context, howmany.Fetcher) string {
	return func(ctx context.Context, f howmany.Fetcher) string {
		if _, err := f.FetchPropertyUnit(ctx, entity, property); !errors.Is(err, want) {
			return fmt.Sprintf("FetchPropertyUnit(%s, %s) error = %v, want %v", entity, property, err, want)
		}
		if _, err := f.FetchPropertyAmount(ctx, entity, property); !errors.Is(err, want) {
			return fmt.Sprintf("FetchPropertyAmount(%s, %s) error = %v, want %v", entity, property, err, want)
		}
		return ""
	}
}

func defaultEngine(f howmany.Fetcher) (*howmany.Engine, error) {
	conversions, err := howmany.DefaultConversionTable()
	if err != nil {
		return nil, err
	}
	dimensions, err := howmany.DefaultDimensionRegistry()
	if err != nil {
		return nil, err
	}
	return howmany.NewEngine(f, conversions, dimensions), nil
}

// locateSource returns the file and line of its caller, formatted so editors
// can jump to the failing test-case.
func locateSource() string {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Sprintf("%s:%d", file, line)
}
