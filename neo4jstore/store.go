// Package neo4jstore implements [howmany.Fetcher] on top of a Neo4j knowledge
// graph, for deployments that keep a curated copy of the entities they compare.
//
// The graph holds one node per entity, with its labels and quantity claims as
// neighbours:
//
//	(:Entity {id})-[:LABELLED]->(:Label {locale, value})
//	(:Entity {id})-[:MEASURED]->(:Claim {property, amount, unit})
//
// Prepare a database with BootstrapDatabase and fill it with Store.Put.
package neo4jstore

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-digitaltwin/howmany"
)

// Store reads and writes entities in a Neo4j database. Every call runs in its
// own transaction. A Store is safe for concurrent use.
type Store struct {
	driver   neo4j.DriverWithContext // Connection to the neo4j server/cluster.
	database string                  // Target database name; the server's default database if empty.
}

// New returns a Store using the given database of the given driver.
func New(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

func (s *Store) FetchLabel(ctx context.Context, entity howmany.EntityID, locale string) (string, error) {
	record, err := s.readSingle(ctx, "Store.FetchLabel", `
		MATCH (:Entity {id: $id})-[:LABELLED]->(l:Label {locale: $locale})
		RETURN l.value AS value
		LIMIT 1
	`, map[string]any{"id": string(entity), "locale": locale})
	if err != nil {
		return "", errors.Wrapf(err, "label of %s", entity)
	}
	if record == nil {
		return "", howmany.LabelNotFound(entity, locale)
	}
	value, err := getRecordProperty[string](record, "value")
	if err != nil {
		return "", errors.Wrapf(err, "label of %s", entity)
	}
	return value, nil
}

func (s *Store) FetchPropertyUnit(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (howmany.Unit, error) {
	q, err := s.claim(ctx, entity, property)
	return q.Unit, err
}

func (s *Store) FetchPropertyAmount(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (float64, error) {
	q, err := s.claim(ctx, entity, property)
	return q.Amount, err
}

func (s *Store) claim(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (howmany.Quantity, error) {
	record, err := s.readSingle(ctx, "Store.claim", `
		MATCH (:Entity {id: $id})-[:MEASURED]->(c:Claim {property: $property})
		RETURN c.amount AS amount, c.unit AS unit
		LIMIT 1
	`, map[string]any{"id": string(entity), "property": string(property)})
	if err != nil {
		return howmany.Quantity{}, errors.Wrapf(err, "%s of %s", property, entity)
	}
	if record == nil {
		missingClaims.Add(ctx, 1)
		return howmany.Quantity{}, howmany.PropertyNotFound(entity, property)
	}

	unit, err := getRecordProperty[string](record, "unit")
	if err != nil {
		return howmany.Quantity{}, errors.Wrapf(err, "unit of %s of %s", property, entity)
	}
	amount, err := getRecordProperty[float64](record, "amount")
	if errors.As(err, &unexpectedPropertyTypeError{}) {
		// Claims written by hand may hold whole numbers.
		var n int64
		n, err = getRecordProperty[int64](record, "amount")
		amount = float64(n)
	}
	if err != nil {
		return howmany.Quantity{}, errors.Wrapf(err, "amount of %s of %s", property, entity)
	}
	return howmany.Quantity{Amount: amount, Unit: howmany.Unit(unit)}, nil
}

// LookupID returns the ID of the entity labelled exactly as given in the given
// locale. When several entities share that label, the smallest ID wins. When
// none does, the label is taken for an ID if an entity has that ID.
func (s *Store) LookupID(ctx context.Context, label, locale string) (howmany.EntityID, error) {
	record, err := s.readSingle(ctx, "Store.LookupID", `
		OPTIONAL MATCH (labelled:Entity)-[:LABELLED]->(:Label {locale: $locale, value: $label})
		WITH labelled ORDER BY labelled.id LIMIT 1
		OPTIONAL MATCH (identified:Entity {id: $label})
		RETURN coalesce(labelled.id, identified.id) AS id
	`, map[string]any{"label": label, "locale": locale})
	if err != nil {
		return "", errors.Wrapf(err, "look up %q", label)
	}
	if record != nil {
		if id, err := getRecordProperty[string](record, "id"); err == nil {
			return howmany.EntityID(id), nil
		} else if !errors.As(err, &unexpectedPropertyTypeError{}) {
			return "", errors.Wrapf(err, "look up %q", label)
		}
	}
	return "", errors.Wrapf(howmany.ErrLabelNotFound, "no entity labelled %q in locale %q", label, locale)
}

// readSingle runs the given query in a read transaction and returns its first
// record, or nil if it returned none.
func (s *Store) readSingle(ctx context.Context, name, query string, params map[string]any) (*neo4j.Record, error) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("neo4j.database", s.database),
	))
	defer span.End()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			component.Logger(ctx).Error("Failed to close store's read session", "error", err)
		}
	}()

	record, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, errors.Wrap(err, "run")
		}
		if !result.Next(ctx) {
			return (*neo4j.Record)(nil), result.Err()
		}
		return result.Record(), nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return record.(*neo4j.Record), nil
}

// An errPropertyNotFound occurs when a record lacks a returned key.
//
// When encountering this error, it most likely occurs when changing a Cypher
// query without modifying the surrounding code properly.
var errPropertyNotFound = errors.New("record property not found")

// An unexpectedPropertyTypeError occurs when a record value has a runtime type
// that is different from the expected type. The error message contains the
// effective type of the value at runtime.
type unexpectedPropertyTypeError struct {
	Type reflect.Type // Effective type encountered at runtime.
}

func (e unexpectedPropertyTypeError) Error() string {
	if e.Type == nil {
		return "unexpected property type: null"
	}
	return "unexpected property type: " + e.Type.String()
}

// The recordProperty interface is a type constraint for the getRecordProperty
// function. It lists the types read from records.
type recordProperty interface {
	int64 | float64 | string
}

func getRecordProperty[T recordProperty](record *neo4j.Record, key string) (value T, err error) {
	prop, exists := record.Get(key)
	if !exists {
		return value, errPropertyNotFound
	}
	v, ok := prop.(T)
	if !ok {
		return value, unexpectedPropertyTypeError{Type: reflect.TypeOf(prop)}
	}
	return v, nil
}
