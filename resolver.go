package howmany

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// errNotApplicable marks strategy failures that let the Resolver advance to the
// next strategy. Every other failure is returned to the caller as is.
var errNotApplicable = errors.New("resolution strategy not applicable")

// A strategy is one way of resolving a quantity. It either returns a quantity,
// a failure marked with errNotApplicable, or any other failure that must stop
// the resolution.
type strategy struct {
	name    string
	resolve func(ctx context.Context, entity EntityID, property PropertyID, target Unit) (Quantity, error)
}

// Resolver finds the amount and unit of a property of an entity. It first asks
// the Fetcher for the property directly; if the entity does not declare it,
// the Resolver reconstructs it from its dimensional components (see
// DimensionRegistry) and multiplies them.
//
// A Resolver holds no mutable state and is safe for concurrent use.
type Resolver struct {
	fetcher     Fetcher
	conversions *ConversionTable
	dimensions  *DimensionRegistry
	strategies  []strategy
}

// NewResolver returns a Resolver reading raw records with the given Fetcher
// and reconciling units with the given tables.
func NewResolver(fetcher Fetcher, conversions *ConversionTable, dimensions *DimensionRegistry) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		conversions: conversions,
		dimensions:  dimensions,
	}
	r.strategies = []strategy{
		{name: "direct", resolve: r.direct},
		{name: "decomposition", resolve: r.decompose},
	}
	return r
}

// Resolve returns the quantity the given entity has for the given property.
// When target is not empty, the quantity is expressed in that unit.
//
// The strategies run in order and the first success wins:
//
//  1. Direct: the entity's declared unit and amount for the property,
//     converted to target if needed.
//  2. Decomposition: only when the entity does not declare the property. Each
//     component property is fetched and converted to a common unit (the
//     per-factor counterpart of target, e.g. kilometre for square kilometre)
//     before they are multiplied.
//
// When neither strategy applies, Resolve fails with ErrQuantityUnresolvable,
// wrapping the decomposition failure (ErrNoDecomposition or
// ErrDimensionUnresolved). Conversion failures (ErrUnitNotConvertible) and
// store failures are never retried with the next strategy; they are returned
// as is.
func (r *Resolver) Resolve(ctx context.Context, entity EntityID, property PropertyID, target Unit) (Quantity, error) {
	ctx, span := tracer.Start(ctx, "Resolver.Resolve", trace.WithAttributes(
		attribute.String("entity", string(entity)),
		attribute.String("property", string(property)),
		attribute.String("unit.target", string(target)),
	))
	defer span.End()
	logger := component.Logger(ctx).With("entity", entity, "property", property)

	var skipped error
	for _, s := range r.strategies {
		start := time.Now()
		q, err := r.try(ctx, s, entity, property, target)
		measureResolution(ctx, s.name, err == nil, time.Since(start))
		if err == nil {
			logger.Debug("Quantity resolved", "strategy", s.name, "quantity", q.String())
			return q, nil
		}
		if !errors.Is(err, errNotApplicable) {
			span.SetStatus(codes.Error, err.Error())
			return Quantity{}, err
		}
		logger.Debug("Resolution strategy not applicable, trying the next one", "strategy", s.name, "reason", err)
		if skipped != nil {
			err = errors.WithSecondaryError(err, skipped)
		}
		skipped = err
	}

	err := QuantityUnresolvable(entity, property, skipped)
	span.SetStatus(codes.Error, err.Error())
	return Quantity{}, err
}

// try runs a single strategy within its own span and validates what it
// produces.
func (r *Resolver) try(ctx context.Context, s strategy, entity EntityID, property PropertyID, target Unit) (Quantity, error) {
	ctx, span := tracer.Start(ctx, "Resolver."+s.name)
	defer span.End()

	q, err := s.resolve(ctx, entity, property, target)
	if err != nil {
		span.RecordError(err)
		return Quantity{}, err
	}
	if err := q.Validate(); err != nil {
		return Quantity{}, errors.Wrapf(err, "%s of %s", property, entity)
	}
	return q, nil
}

// direct resolves the property as declared by the entity. Only an absent unit
// lets the next strategy run: it is what tells an entity lacking the property
// apart from one with a broken record.
func (r *Resolver) direct(ctx context.Context, entity EntityID, property PropertyID, target Unit) (Quantity, error) {
	unit, err := r.fetcher.FetchPropertyUnit(ctx, entity, property)
	if errors.Is(err, ErrPropertyNotFound) {
		return Quantity{}, errors.Mark(err, errNotApplicable)
	} else if err != nil {
		return Quantity{}, errors.Wrap(err, "fetch unit")
	}
	amount, err := r.fetcher.FetchPropertyAmount(ctx, entity, property)
	if err != nil {
		return Quantity{}, errors.Wrap(err, "fetch amount")
	}

	q := Quantity{Amount: amount, Unit: unit}
	if target == "" || target == unit {
		return q, nil
	}
	return r.conversions.Convert(q, target)
}

// decompose reconstructs the property as the product of its components.
func (r *Resolver) decompose(ctx context.Context, entity EntityID, property PropertyID, target Unit) (Quantity, error) {
	components, err := r.dimensions.Components(property)
	if err != nil {
		return Quantity{}, errors.Mark(err, errNotApplicable)
	}

	factors, err := r.fetchComponents(ctx, entity, components)
	if errors.Is(err, ErrPropertyNotFound) {
		return Quantity{}, errors.Mark(DimensionUnresolved(entity, property, err), errNotApplicable)
	} else if err != nil {
		return Quantity{}, err
	}

	// Every factor is expressed in the same unit before multiplying. When a
	// target is given and has a known n-th root (kilometre for square
	// kilometre), the factors are converted to that root so the product lands
	// directly in the target unit. Otherwise, the first factor's unit is used
	// and the product is converted afterwards.
	n := len(factors)
	base := factors[0].Unit
	if target != "" {
		if root, ok := r.dimensions.Root(target, n); ok {
			base = root
		}
	}

	product := 1.0
	for _, f := range factors {
		f, err := r.conversions.Convert(f, base)
		if err != nil {
			return Quantity{}, err
		}
		product *= f.Amount
	}

	unit, ok := r.dimensions.Power(base, n)
	if !ok {
		err := &ConversionError{From: Unit(fmt.Sprintf("%s^%d", base, n)), To: target}
		return Quantity{}, errors.WithHintf(err, "declare the name of %q to the power of %d", base, n)
	}
	q := Quantity{Amount: product, Unit: unit}
	if target == "" || target == unit {
		return q, nil
	}
	return r.conversions.Convert(q, target)
}

// fetchComponents fetches the declared unit and amount of every component
// property concurrently, returning them in the order of components.
//
// Every fetch runs to completion. A store failure is reported before a missing
// component, whatever order they happen in; otherwise the first missing
// component in order is.
func (r *Resolver) fetchComponents(ctx context.Context, entity EntityID, components []PropertyID) ([]Quantity, error) {
	factors := make([]Quantity, len(components))
	errs := make([]error, len(components))
	var g errgroup.Group
	for i, c := range components {
		g.Go(func() error {
			factors[i], errs[i] = r.fetchComponent(ctx, entity, c)
			return nil
		})
	}
	_ = g.Wait()

	if i := slices.IndexFunc(errs, func(err error) bool {
		return err != nil && !errors.Is(err, ErrPropertyNotFound)
	}); i >= 0 {
		return nil, errs[i]
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return factors, nil
}

func (r *Resolver) fetchComponent(ctx context.Context, entity EntityID, c PropertyID) (Quantity, error) {
	unit, err := r.fetcher.FetchPropertyUnit(ctx, entity, c)
	if err != nil {
		return Quantity{}, errors.Wrapf(err, "fetch unit of component %s", c)
	}
	amount, err := r.fetcher.FetchPropertyAmount(ctx, entity, c)
	if err != nil {
		return Quantity{}, errors.Wrapf(err, "fetch amount of component %s", c)
	}
	q := Quantity{Amount: amount, Unit: unit}
	if err := q.Validate(); err != nil {
		return Quantity{}, errors.Wrapf(err, "component %s", c)
	}
	return q, nil
}
