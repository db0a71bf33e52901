package howmany_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/go-digitaltwin/howmany"
	"github.com/go-digitaltwin/howmany/memstore"
)

// Knowledge stores are usually remote (see the wikidata package). Here we load
// a small dataset in memory instead.
const dataset = `
entities:
  - id: Q183
    labels: {en: Germany}
    claims:
      P2046: {amount: 357022, unit: square kilometre}
  - id: Q32
    labels: {en: Luxembourg}
    claims:
      P2046: {amount: 2586.4, unit: square kilometre}
  - id: Q8524
    labels: {en: football pitch}
    claims:
      P2043: {amount: 105, unit: metre}
      P2049: {amount: 68, unit: metre}
`

func Example() {
	store, err := memstore.Load(strings.NewReader(dataset))
	if err != nil {
		log.Fatal(err)
	}

	// Build the tables once and share them; they never change.
	conversions, err := howmany.DefaultConversionTable()
	if err != nil {
		log.Fatal(err)
	}
	dimensions, err := howmany.DefaultDimensionRegistry()
	if err != nil {
		log.Fatal(err)
	}
	engine := howmany.NewEngine(store, conversions, dimensions)

	// The football pitch declares no area, so it is reconstructed from its
	// length and width.
	results, err := engine.Compare(context.Background(), howmany.Comparison{
		Containers: howmany.Side{IDs: []string{"Q183", "Q32"}},
		Entities:   howmany.Side{IDs: []string{"Q8524"}},
		Property:   howmany.Area,
		Locale:     "en",
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, container := range []string{"Germany", "Luxembourg"} {
		r := results[container]
		fmt.Printf("%s holds %.0f of %s\n", r.Container, r.Amount, r.Entity)
	}
	// Output:
	// Germany holds 50003081 of football pitch
	// Luxembourg holds 362241 of football pitch
}

func ExampleResolver_Resolve() {
	store := memstore.New(howmany.EntityRecord{
		ID: "Q8524",
		Claims: map[howmany.PropertyID]howmany.Quantity{
			howmany.Length: {Amount: 105, Unit: "metre"},
			howmany.Width:  {Amount: 68, Unit: "metre"},
		},
	})
	conversions, err := howmany.DefaultConversionTable()
	if err != nil {
		log.Fatal(err)
	}
	dimensions, err := howmany.DefaultDimensionRegistry()
	if err != nil {
		log.Fatal(err)
	}
	r := howmany.NewResolver(store, conversions, dimensions)

	for _, target := range []howmany.Unit{"", "hectare", "square foot"} {
		q, err := r.Resolve(context.Background(), "Q8524", howmany.Area, target)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Printf("%.4g %s\n", q.Amount, q.Unit)
	}
	// Output:
	// 7140 square metre
	// 0.714 hectare
	// 7.685e+04 square foot
}
