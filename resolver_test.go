package howmany

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestResolver_Resolve(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	r := NewResolver(newFakeFetcher(), conversions, dimensions)

	tests := []struct {
		Name     string
		Entity   EntityID
		Property PropertyID
		Target   Unit
		Want     Quantity
	}{
		{
			Name:     "DirectInDeclaredUnit",
			Entity:   germany,
			Property: Area,
			Want:     Quantity{Amount: 357022, Unit: "square kilometre"},
		},
		{
			Name:     "DirectInSameUnit",
			Entity:   germany,
			Property: Area,
			Target:   "square kilometre",
			Want:     Quantity{Amount: 357022, Unit: "square kilometre"},
		},
		{
			Name:     "DirectConverted",
			Entity:   germany,
			Property: Area,
			Target:   "square metre",
			Want:     Quantity{Amount: 357022e6, Unit: "square metre"},
		},
		{
			Name:     "DecomposedInComponentUnit",
			Entity:   pitch,
			Property: Area,
			Want:     Quantity{Amount: 7140, Unit: "square metre"},
		},
		{
			// Components are converted to kilometres before multiplying.
			Name:     "DecomposedInTargetRoot",
			Entity:   pitch,
			Property: Area,
			Target:   "square kilometre",
			Want:     Quantity{Amount: 0.00714, Unit: "square kilometre"},
		},
		{
			// Hectare is no square of a length unit, so the product in square
			// metres is converted instead.
			Name:     "DecomposedThenConverted",
			Entity:   pitch,
			Property: Area,
			Target:   "hectare",
			Want:     Quantity{Amount: 0.714, Unit: "hectare"},
		},
		{
			Name:     "ComponentDirect",
			Entity:   pitch,
			Property: Length,
			Target:   "kilometre",
			Want:     Quantity{Amount: 0.105, Unit: "kilometre"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.Entity, tt.Property, tt.Target)
			if err != nil {
				t.Fatalf("Resolve(%s, %s, %q) error = %v", tt.Entity, tt.Property, tt.Target, err)
			}
			if diff := cmp.Diff(tt.Want, got, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
				t.Errorf("Resolve(%s, %s, %q) mismatch (-want +got):\n%s", tt.Entity, tt.Property, tt.Target, diff)
			}
		})
	}
}

func TestResolver_ResolveUnresolvable(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	r := NewResolver(newFakeFetcher(), conversions, dimensions)

	tests := []struct {
		Name     string
		Entity   EntityID
		Property PropertyID
		// The resolution fails with ErrQuantityUnresolvable wrapping all of these.
		WantCauses []error
	}{
		{
			Name:       "NoDecompositionRule",
			Entity:     pitch,
			Property:   "P9999",
			WantCauses: []error{ErrNoDecomposition},
		},
		{
			Name:       "NothingDeclared",
			Entity:     blank,
			Property:   Area,
			WantCauses: []error{ErrDimensionUnresolved, ErrPropertyNotFound},
		},
		{
			Name:       "MissingComponent",
			Entity:     halfPitch,
			Property:   Area,
			WantCauses: []error{ErrDimensionUnresolved, ErrPropertyNotFound},
		},
		{
			Name:       "UnknownEntity",
			Entity:     "Q0",
			Property:   Volume,
			WantCauses: []error{ErrDimensionUnresolved, ErrPropertyNotFound},
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.Entity, tt.Property, "")
			if !errors.Is(err, ErrQuantityUnresolvable) {
				t.Fatalf("Resolve(%s, %s) error = %v, want %v", tt.Entity, tt.Property, err, ErrQuantityUnresolvable)
			}
			for _, cause := range tt.WantCauses {
				if !errors.Is(err, cause) {
					t.Errorf("Resolve(%s, %s) error = %v, want it to wrap %v", tt.Entity, tt.Property, err, cause)
				}
			}

			var pe *PropertyError
			if !errors.As(err, &pe) {
				t.Fatalf("Resolve(%s, %s) error = %T, want *PropertyError", tt.Entity, tt.Property, err)
			}
			if pe.Entity != tt.Entity || pe.Property != tt.Property {
				t.Errorf("PropertyError = {Entity: %s, Property: %s}, want {Entity: %s, Property: %s}",
					pe.Entity, pe.Property, tt.Entity, tt.Property)
			}
		})
	}
}

// Failures other than a missing value are never papered over by trying
// another strategy.
func TestResolver_ResolveFailures(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	errUnavailable := errors.New("store unavailable")
	f := newFakeFetcher()
	f.fail = map[EntityID]error{luxembourg: errUnavailable}
	f.claims["Q-negative"] = map[PropertyID]Quantity{Area: {Amount: -1, Unit: "square metre"}}
	f.claims["Q-negative-component"] = map[PropertyID]Quantity{
		Length: {Amount: 10, Unit: "metre"},
		Width:  {Amount: -10, Unit: "metre"},
	}
	f.claims["Q-mixed"] = map[PropertyID]Quantity{
		Length: {Amount: 10, Unit: "metre"},
		Width:  {Amount: 1, Unit: "furlong"},
	}
	r := NewResolver(f, conversions, dimensions)

	tests := []struct {
		Name     string
		Entity   EntityID
		Property PropertyID
		Target   Unit
		WantErr  error
	}{
		{Name: "StoreFailure", Entity: luxembourg, Property: Area, WantErr: errUnavailable},
		{Name: "DirectNotConvertible", Entity: farm, Property: Area, Target: "square kilometre", WantErr: ErrUnitNotConvertible},
		{Name: "ComponentsNotConvertible", Entity: plot, Property: Area, Target: "square kilometre", WantErr: ErrUnitNotConvertible},
		{Name: "ComponentsOfMixedUnits", Entity: "Q-mixed", Property: Area, WantErr: ErrUnitNotConvertible},
		{Name: "ProductUnitUnnamed", Entity: plot, Property: Area, WantErr: ErrUnitNotConvertible},
		{Name: "ProductNotConvertible", Entity: pitch, Property: Area, Target: "acre foot", WantErr: ErrUnitNotConvertible},
		{Name: "NegativeAmount", Entity: "Q-negative", Property: Area, WantErr: ErrInvalidQuantity},
		{Name: "NegativeComponent", Entity: "Q-negative-component", Property: Area, WantErr: ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.Entity, tt.Property, tt.Target)
			if !errors.Is(err, tt.WantErr) {
				t.Fatalf("Resolve(%s, %s, %q) error = %v, want %v", tt.Entity, tt.Property, tt.Target, err, tt.WantErr)
			}
			if errors.Is(err, ErrQuantityUnresolvable) {
				t.Errorf("Resolve(%s, %s, %q) error = %v, want no %v", tt.Entity, tt.Property, tt.Target, err, ErrQuantityUnresolvable)
			}
		})
	}
}

// amountFailingFetcher declares units but fails to fetch amounts.
type amountFailingFetcher struct {
	fakeFetcher
	err error
}

func (f amountFailingFetcher) FetchPropertyAmount(context.Context, EntityID, PropertyID) (float64, error) {
	return 0, f.err
}

func TestResolver_ResolveAmountFailure(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	errTimeout := errors.New("timed out")
	r := NewResolver(amountFailingFetcher{newFakeFetcher(), errTimeout}, conversions, dimensions)

	for _, entity := range []EntityID{germany, pitch} {
		_, err := r.Resolve(context.Background(), entity, Area, "")
		if !errors.Is(err, errTimeout) {
			t.Errorf("Resolve(%s) error = %v, want %v", entity, err, errTimeout)
		}
	}
}

func TestResolver_ResolveCancelled(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	r := NewResolver(newFakeFetcher(), conversions, dimensions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, germany, Area, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want %v", err, context.Canceled)
	}
}

// componentFailingFetcher fails to fetch one property of every entity.
type componentFailingFetcher struct {
	fakeFetcher
	property PropertyID
	err      error
}

func (f componentFailingFetcher) FetchPropertyUnit(ctx context.Context, entity EntityID, property PropertyID) (Unit, error) {
	if property == f.property {
		return "", f.err
	}
	return f.fakeFetcher.FetchPropertyUnit(ctx, entity, property)
}

// A store failing on one component is reported even when another component is
// missing, however the fetches interleave.
func TestResolver_ResolveComponentFailureBeforeMissing(t *testing.T) {
	conversions, dimensions := defaultTables(t)
	errTimeout := errors.New("timed out")
	// The half pitch declares no width, and its length cannot be fetched.
	r := NewResolver(componentFailingFetcher{newFakeFetcher(), Length, errTimeout}, conversions, dimensions)

	for range 50 {
		_, err := r.Resolve(context.Background(), halfPitch, Area, "")
		if !errors.Is(err, errTimeout) {
			t.Fatalf("Resolve() error = %v, want %v", err, errTimeout)
		}
		if errors.Is(err, ErrQuantityUnresolvable) {
			t.Fatalf("Resolve() error = %v, must not be %v", err, ErrQuantityUnresolvable)
		}
	}
}
