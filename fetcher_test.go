package howmany

import (
	"context"
	"testing"
)

// fakeFetcher serves labels and claims from maps. An error registered in fail
// is returned for every claim of that entity.
type fakeFetcher struct {
	labels map[EntityID]map[string]string
	claims map[EntityID]map[PropertyID]Quantity
	fail   map[EntityID]error
}

func (f fakeFetcher) FetchLabel(ctx context.Context, entity EntityID, locale string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	label, ok := f.labels[entity][locale]
	if !ok {
		return "", LabelNotFound(entity, locale)
	}
	return label, nil
}

func (f fakeFetcher) FetchPropertyUnit(ctx context.Context, entity EntityID, property PropertyID) (Unit, error) {
	q, err := f.claim(ctx, entity, property)
	return q.Unit, err
}

func (f fakeFetcher) FetchPropertyAmount(ctx context.Context, entity EntityID, property PropertyID) (float64, error) {
	q, err := f.claim(ctx, entity, property)
	return q.Amount, err
}

func (f fakeFetcher) claim(ctx context.Context, entity EntityID, property PropertyID) (Quantity, error) {
	if err := ctx.Err(); err != nil {
		return Quantity{}, err
	}
	if err, ok := f.fail[entity]; ok {
		return Quantity{}, err
	}
	q, ok := f.claims[entity][property]
	if !ok {
		return Quantity{}, PropertyNotFound(entity, property)
	}
	return q, nil
}

// Entities known to newFakeFetcher.
const (
	germany    EntityID = "Q183"
	luxembourg EntityID = "Q32"
	pitch      EntityID = "Q8524"
	halfPitch  EntityID = "Q-half"  // Declares a length but no width.
	farm       EntityID = "Q-farm"  // Declares its area in an unknown unit.
	plot       EntityID = "Q-plot"  // Declares components in an unknown unit.
	void       EntityID = "Q-void"  // Declares an area of zero.
	blank      EntityID = "Q-blank" // Declares nothing.
)

func newFakeFetcher() fakeFetcher {
	return fakeFetcher{
		labels: map[EntityID]map[string]string{
			germany:    {"en": "Germany", "de": "Deutschland"},
			luxembourg: {"en": "Luxembourg"},
			pitch:      {"en": "football pitch"},
			halfPitch:  {"en": "half a pitch"},
			farm:       {"en": "farm"},
			plot:       {"en": "plot"},
			void:       {"en": "void"},
			blank:      {"en": "blank"},
		},
		claims: map[EntityID]map[PropertyID]Quantity{
			germany:    {Area: {Amount: 357022, Unit: "square kilometre"}},
			luxembourg: {Area: {Amount: 2586.4, Unit: "square kilometre"}},
			pitch: {
				Length: {Amount: 105, Unit: "metre"},
				Width:  {Amount: 68, Unit: "metre"},
			},
			halfPitch: {Length: {Amount: 52.5, Unit: "metre"}},
			farm:      {Area: {Amount: 40, Unit: "square furlong"}},
			plot: {
				Length: {Amount: 2, Unit: "furlong"},
				Width:  {Amount: 1, Unit: "furlong"},
			},
			void: {Area: {Amount: 0, Unit: "square kilometre"}},
		},
	}
}

// defaultTables returns the default conversion table and dimension registry,
// failing the test if they do not construct.
func defaultTables(t *testing.T) (*ConversionTable, *DimensionRegistry) {
	t.Helper()
	conversions, err := DefaultConversionTable()
	if err != nil {
		t.Fatalf("DefaultConversionTable() error = %v", err)
	}
	dimensions, err := DefaultDimensionRegistry()
	if err != nil {
		t.Fatalf("DefaultDimensionRegistry() error = %v", err)
	}
	return conversions, dimensions
}
