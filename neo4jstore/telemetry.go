package neo4jstore

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/howmany/neo4jstore")
var meter = otel.Meter("github.com/go-digitaltwin/howmany/neo4jstore")

var (
	// missingClaims counts lookups of claims the graph does not hold. Resolvers
	// rely on these to decompose properties, so a sudden rise usually means
	// the graph was loaded partially.
	missingClaims metric.Int64Counter
)

func init() {
	var err error
	missingClaims, err = meter.Int64Counter(
		"howmany.neo4j.claims.missing",
		metric.WithDescription("how many claim lookups found no claim"),
	)
	if err != nil {
		s := fmt.Sprintf("neo4jstore: failed to init 'howmany.neo4j.claims.missing' instrument: %v", err)
		panic(s)
	}
}
