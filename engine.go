package howmany

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// A Side describes one role of a comparison: the containers (numerators) or
// the entities (denominators).
//
// By default, IDs identify entities in the knowledge store, and both their
// labels and amounts are looked up. When Amounts is not empty, the side is
// literal: Amounts[i] is the amount of IDs[i] expressed in Unit, and IDs are
// used as labels verbatim.
type Side struct {
	IDs     []string
	Amounts []float64
	Unit    Unit
}

func (s Side) literal() bool { return len(s.Amounts) > 0 }

func (s Side) validate(role string) error {
	if len(s.IDs) == 0 {
		return errors.Wrapf(ErrInvalidRequest, "no %s", role)
	}
	if !s.literal() {
		return nil
	}
	if len(s.Amounts) != len(s.IDs) {
		return errors.Wrapf(ErrInvalidRequest, "%d %s but %d amounts", len(s.IDs), role, len(s.Amounts))
	}
	if s.Unit == "" {
		return errors.Wrapf(ErrInvalidRequest, "%s amounts without a unit", role)
	}
	for i, a := range s.Amounts {
		if err := (Quantity{Amount: a, Unit: s.Unit}).Validate(); err != nil {
			return errors.Wrapf(err, "%s %q", role, s.IDs[i])
		}
	}
	return nil
}

// A Comparison asks how many of each entity fit inside each container, judged
// by the given property. Labels are looked up in the given locale.
type Comparison struct {
	Containers Side
	Entities   Side
	Property   PropertyID
	Locale     string
}

// A RatioResult tells how many of an entity fit inside a container: Amount is
// the container's amount divided by the entity's amount.
type RatioResult struct {
	Container string
	Entity    string
	Amount    float64
}

// Engine computes the ratios of comparisons. It resolves the quantities of
// both sides with a Resolver, labels them with a Fetcher, and divides.
//
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	fetcher     Fetcher
	conversions *ConversionTable
	resolver    *Resolver
}

// NewEngine returns an Engine reading raw records with the given Fetcher and
// reconciling units with the given tables.
func NewEngine(fetcher Fetcher, conversions *ConversionTable, dimensions *DimensionRegistry) *Engine {
	return &Engine{
		fetcher:     fetcher,
		conversions: conversions,
		resolver:    NewResolver(fetcher, conversions, dimensions),
	}
}

// Resolver returns the Resolver the Engine uses for looked up sides.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Compare computes the ratio for every (container, entity) pair of the given
// comparison and returns them keyed by container label.
//
// The amounts of each side are obtained in one of these modes:
//
//   - Both sides looked up: the first container is resolved in its declared
//     unit, the other containers and all entities in that unit. If any of these
//     resolutions fails, the whole pass is retried the other way around
//     (entities first, containers in the first entity's unit). If both
//     directions fail, the error of the first direction is returned, with the
//     second attached as a secondary error.
//   - Literal containers: entities are resolved in the containers' unit.
//   - Literal entities: containers are resolved in the entities' unit.
//   - Both literal: entity amounts are converted to the containers' unit.
//
// Pairs are visited in container-major order. Results are keyed by container
// label, so when several entities are compared with the same container, only
// the last entity's ratio remains in the map.
//
// Compare fails with ErrDivisionByZero if an entity's amount is zero.
func (e *Engine) Compare(ctx context.Context, c Comparison) (map[string]RatioResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.Compare", trace.WithAttributes(
		attribute.String("property", string(c.Property)),
		attribute.StringSlice("containers", c.Containers.IDs),
		attribute.StringSlice("entities", c.Entities.IDs),
	))
	defer span.End()
	logger := component.Logger(ctx).With("property", c.Property)
	ctx = component.InjectLogger(ctx, logger)
	start := time.Now()

	results, mode, err := e.compare(ctx, c)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	measureComparison(ctx, mode, time.Since(start))
	logger.Info("Comparison completed", "mode", mode, "results", len(results))
	return results, nil
}

func (e *Engine) compare(ctx context.Context, c Comparison) (results map[string]RatioResult, mode string, err error) {
	if err := c.Containers.validate("containers"); err != nil {
		return nil, "", err
	}
	if err := c.Entities.validate("entities"); err != nil {
		return nil, "", err
	}

	var containers, entities []Quantity
	switch {
	case c.Containers.literal() && c.Entities.literal():
		mode = "literal"
		containers = literalQuantities(c.Containers)
		entities, err = e.convertAll(literalQuantities(c.Entities), c.Containers.Unit)
	case c.Containers.literal():
		mode = "literal-containers"
		containers = literalQuantities(c.Containers)
		entities, err = e.resolveAll(ctx, c.Entities.IDs, c.Property, c.Containers.Unit)
	case c.Entities.literal():
		mode = "literal-entities"
		entities = literalQuantities(c.Entities)
		containers, err = e.resolveAll(ctx, c.Containers.IDs, c.Property, c.Entities.Unit)
	default:
		mode = "lookup"
		containers, entities, err = e.resolveBoth(ctx, c)
	}
	if err != nil {
		return nil, mode, err
	}

	containerLabels, entityLabels, err := e.labels(ctx, c)
	if err != nil {
		return nil, mode, err
	}

	results = make(map[string]RatioResult, len(containers))
	for i, container := range containers {
		for j, entity := range entities {
			if entity.Amount == 0 {
				return nil, mode, errors.Wrapf(ErrDivisionByZero, "%s of %s is zero", c.Property, entityLabels[j])
			}
			results[containerLabels[i]] = RatioResult{
				Container: containerLabels[i],
				Entity:    entityLabels[j],
				Amount:    container.Amount / entity.Amount,
			}
		}
	}
	return results, mode, nil
}

// resolveBoth resolves the quantities of both sides when neither is literal,
// falling back to resolving the entities first when the containers-first pass
// fails.
func (e *Engine) resolveBoth(ctx context.Context, c Comparison) (containers, entities []Quantity, err error) {
	containers, entities, err = e.resolvePass(ctx, c.Containers.IDs, c.Entities.IDs, c.Property)
	if err == nil {
		return containers, entities, nil
	}
	component.Logger(ctx).Debug("Resolving containers first failed, retrying with entities first", "error", err)

	entities, containers, fallbackErr := e.resolvePass(ctx, c.Entities.IDs, c.Containers.IDs, c.Property)
	if fallbackErr != nil {
		return nil, nil, errors.WithSecondaryError(err, fallbackErr)
	}
	return containers, entities, nil
}

// resolvePass resolves leading[0] in its declared unit, then the rest of
// leading and all of trailing in that unit.
func (e *Engine) resolvePass(ctx context.Context, leading, trailing []string, property PropertyID) (lq, tq []Quantity, err error) {
	first, err := e.resolver.Resolve(ctx, EntityID(leading[0]), property, "")
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(leading)-1+len(trailing))
	ids = append(ids, leading[1:]...)
	ids = append(ids, trailing...)
	rest, err := e.resolveAll(ctx, ids, property, first.Unit)
	if err != nil {
		return nil, nil, err
	}
	lq = append([]Quantity{first}, rest[:len(leading)-1]...)
	tq = rest[len(leading)-1:]
	return lq, tq, nil
}

// resolveAll resolves the given entities concurrently, in the target unit.
func (e *Engine) resolveAll(ctx context.Context, ids []string, property PropertyID, target Unit) ([]Quantity, error) {
	quantities := make([]Quantity, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			q, err := e.resolver.Resolve(ctx, EntityID(id), property, target)
			if err != nil {
				return err
			}
			quantities[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quantities, nil
}

func (e *Engine) convertAll(quantities []Quantity, target Unit) ([]Quantity, error) {
	converted := make([]Quantity, len(quantities))
	for i, q := range quantities {
		c, err := e.conversions.Convert(q, target)
		if err != nil {
			return nil, err
		}
		converted[i] = c
	}
	return converted, nil
}

// labels returns the labels of both sides, fetching those of looked up sides
// concurrently.
func (e *Engine) labels(ctx context.Context, c Comparison) (containers, entities []string, err error) {
	containers = make([]string, len(c.Containers.IDs))
	entities = make([]string, len(c.Entities.IDs))
	g, ctx := errgroup.WithContext(ctx)
	for _, side := range []struct {
		Side
		labels []string
	}{
		{c.Containers, containers},
		{c.Entities, entities},
	} {
		for i, id := range side.IDs {
			if side.literal() {
				side.labels[i] = id
				continue
			}
			g.Go(func() error {
				label, err := e.fetcher.FetchLabel(ctx, EntityID(id), c.Locale)
				if err != nil {
					return err
				}
				side.labels[i] = label
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return containers, entities, nil
}

func literalQuantities(s Side) []Quantity {
	quantities := make([]Quantity, len(s.Amounts))
	for i, a := range s.Amounts {
		quantities[i] = Quantity{Amount: a, Unit: s.Unit}
	}
	return quantities
}
