package wikidata

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-digitaltwin/howmany"
)

// entityURIPrefix prefixes the concept URI of every entity, which is how
// quantity values refer to their unit.
const entityURIPrefix = "http://www.wikidata.org/entity/"

// dimensionless is the unit of quantities without one.
const dimensionless = "1"

// An entity is the part of a wbgetentities document we read.
type entity struct {
	ID      string                 `json:"id"`
	Missing *string                `json:"missing"` // Set (to "") when the entity does not exist.
	Labels  map[string]label       `json:"labels"`
	Claims  map[string][]statement `json:"claims"`
}

type label struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type statement struct {
	Rank     string `json:"rank"` // One of preferred, normal, or deprecated.
	Mainsnak struct {
		Snaktype  string `json:"snaktype"` // Only "value" snaks have a datavalue.
		Datavalue *struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

type quantityValue struct {
	Amount string `json:"amount"` // Signed decimal, e.g. "+357022".
	Unit   string `json:"unit"`   // Entity URI, or "1" when dimensionless.
}

// quantity returns the best quantity claimed for the given property: the first
// preferred statement if any, otherwise the first normal one. Deprecated
// statements and statements of unknown or no value are ignored.
func (e *entity) quantity(property howmany.PropertyID) (quantityValue, bool, error) {
	var best *statement
	for i, s := range e.Claims[string(property)] {
		if s.Rank == "deprecated" || s.Mainsnak.Snaktype != "value" || s.Mainsnak.Datavalue == nil {
			continue
		}
		if s.Mainsnak.Datavalue.Type != "quantity" {
			continue
		}
		if best == nil || (s.Rank == "preferred" && best.Rank != "preferred") {
			best = &e.Claims[string(property)][i]
		}
	}
	if best == nil {
		return quantityValue{}, false, nil
	}
	var q quantityValue
	if err := json.Unmarshal(best.Mainsnak.Datavalue.Value, &q); err != nil {
		return quantityValue{}, false, errors.Wrapf(err, "decode %s quantity of %s", property, e.ID)
	}
	return q, true, nil
}

func (q quantityValue) amount() (float64, error) {
	a, err := strconv.ParseFloat(q.Amount, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse amount %q", q.Amount)
	}
	return a, nil
}

// unitID returns the entity ID of the quantity's unit, or false for a
// dimensionless quantity.
func (q quantityValue) unitID() (howmany.EntityID, bool, error) {
	if q.Unit == dimensionless {
		return "", false, nil
	}
	id, ok := strings.CutPrefix(q.Unit, entityURIPrefix)
	if !ok || id == "" {
		return "", false, errors.Newf("unexpected unit %q", q.Unit)
	}
	return howmany.EntityID(id), true, nil
}

// entity returns the document of the given entity, from the memo if possible.
// Concurrent calls for the same entity share a single request, which a
// cancelled caller leaves running for the others.
func (c *Client) entity(ctx context.Context, id howmany.EntityID) (*entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if e, ok := c.cache.Get(string(id)); ok {
			cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", true)))
			return e.(*entity), nil
		}
		cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", false)))
	}

	// The shared request outlives the caller that started it: it is bounded by
	// the client's timeout and retries, and each caller stops waiting on its own
	// cancellation.
	ch := c.inflight.DoChan(string(id), func() (any, error) {
		e, err := c.fetchEntity(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Set(string(id), e, gocache.DefaultExpiration)
		}
		return e, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*entity), nil
	}
}

func (c *Client) fetchEntity(ctx context.Context, id howmany.EntityID) (*entity, error) {
	ctx, span := tracer.Start(ctx, "Client.fetchEntity", trace.WithAttributes(
		attribute.String("entity", string(id)),
	))
	defer span.End()

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", string(id))
	params.Set("props", "labels|claims")
	var body struct {
		Entities map[string]*entity `json:"entities"`
	}
	if err := c.get(ctx, params, &body); err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "get entity %s", id)
	}

	e, ok := body.Entities[string(id)]
	if !ok && len(body.Entities) == 1 {
		// Redirected entities are keyed by their target.
		for _, target := range body.Entities {
			e, ok = target, true
		}
	}
	if !ok || e == nil {
		return nil, errors.Newf("get entity %s: not in response", id)
	}
	return e, nil
}
