package neo4jstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-digitaltwin/howmany"
)

// Put writes the given records in a single transaction. Existing entities are
// updated in place: labels and claims present in a record replace the stored
// ones with the same locale or property, and the others are kept.
//
// Records are validated before anything is written; Put fails without writing
// if any record lacks an ID or holds an invalid quantity.
func (s *Store) Put(ctx context.Context, records ...howmany.EntityRecord) error {
	for _, r := range records {
		if r.ID == "" {
			return errors.New("entity without id")
		}
		for p, q := range r.Claims {
			if q.Unit == "" {
				return errors.Newf("entity %s: claim %s: missing unit", r.ID, p)
			}
			if err := q.Validate(); err != nil {
				return errors.Wrapf(err, "entity %s: claim %s", r.ID, p)
			}
		}
	}

	ctx, span := tracer.Start(ctx, "Store.Put", trace.WithAttributes(
		attribute.String("neo4j.database", s.database),
		attribute.Int("records", len(records)),
	))
	defer span.End()
	logger := component.Logger(ctx).With("neo4j.database", s.database)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Error("Failed to close store's write session", "error", err)
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, r := range records {
			if err := putRecord(ctx, tx, r); err != nil {
				return nil, errors.Wrapf(err, "entity %s", r.ID)
			}
		}
		return nil, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "neo4j execute")
	}
	logger.Debug("Entities written", "count", len(records))
	return nil
}

func putRecord(ctx context.Context, tx neo4j.ManagedTransaction, r howmany.EntityRecord) error {
	labels := make([]map[string]any, 0, len(r.Labels))
	for locale, value := range r.Labels {
		labels = append(labels, map[string]any{"locale": locale, "value": value})
	}
	claims := make([]map[string]any, 0, len(r.Claims))
	for p, q := range r.Claims {
		claims = append(claims, map[string]any{"property": string(p), "amount": q.Amount, "unit": string(q.Unit)})
	}

	// The FOREACH clauses keep the entity row alive when a list is empty,
	// unlike UNWIND.
	result, err := tx.Run(ctx, `
		MERGE (e:Entity {id: $id})
		FOREACH (label IN $labels |
			MERGE (e)-[:LABELLED]->(l:Label {locale: label.locale})
			SET l.value = label.value
		)
		FOREACH (claim IN $claims |
			MERGE (e)-[:MEASURED]->(c:Claim {property: claim.property})
			SET c.amount = claim.amount, c.unit = claim.unit
		)
	`, map[string]any{
		"id":     string(r.ID),
		"labels": labels,
		"claims": claims,
	})
	if err != nil {
		return errors.Wrap(err, "run")
	}
	if _, err := result.Consume(ctx); err != nil {
		return errors.Wrap(err, "consume")
	}
	return nil
}
