package wikidata

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/howmany/wikidata")
var meter = otel.Meter("github.com/go-digitaltwin/howmany/wikidata")

var (
	// cacheLookups counts lookups of the entity memo, labelled by whether the
	// entity was found.
	cacheLookups metric.Int64Counter
)

func init() {
	var err error
	cacheLookups, err = meter.Int64Counter(
		"howmany.wikidata.cache.lookups",
		metric.WithDescription("lookups of memoised entity documents"),
	)
	if err != nil {
		s := fmt.Sprintf("wikidata: failed to init 'howmany.wikidata.cache.lookups' instrument: %v", err)
		panic(s)
	}
}
