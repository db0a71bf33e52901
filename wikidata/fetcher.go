package wikidata

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"

	"github.com/go-digitaltwin/howmany"
)

// unitLocale is the locale of unit names. Conversion tables name units in
// English.
const unitLocale = "en"

// FetchLabel returns the label of the entity in the given locale.
func (c *Client) FetchLabel(ctx context.Context, entity howmany.EntityID, locale string) (string, error) {
	e, err := c.entity(ctx, entity)
	if err != nil {
		return "", err
	}
	l, ok := e.Labels[locale]
	if e.Missing != nil || !ok {
		return "", howmany.LabelNotFound(entity, locale)
	}
	return l.Value, nil
}

// FetchPropertyUnit returns the English label of the unit of the entity's best
// quantity statement for the property. Dimensionless quantities are reported
// as absent, since they cannot be reconciled with any unit.
func (c *Client) FetchPropertyUnit(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (howmany.Unit, error) {
	q, err := c.quantity(ctx, entity, property)
	if err != nil {
		return "", err
	}
	unit, ok, err := q.unitID()
	if err != nil {
		return "", errors.Wrapf(err, "%s of %s", property, entity)
	}
	if !ok {
		component.Logger(ctx).Debug("Ignoring dimensionless quantity", "entity", entity, "property", property)
		return "", howmany.PropertyNotFound(entity, property)
	}
	name, err := c.FetchLabel(ctx, unit, unitLocale)
	if err != nil {
		return "", errors.Wrapf(err, "name unit of %s of %s", property, entity)
	}
	return howmany.Unit(name), nil
}

// FetchPropertyAmount returns the amount of the entity's best quantity
// statement for the property.
func (c *Client) FetchPropertyAmount(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (float64, error) {
	q, err := c.quantity(ctx, entity, property)
	if err != nil {
		return 0, err
	}
	a, err := q.amount()
	if err != nil {
		return 0, errors.Wrapf(err, "%s of %s", property, entity)
	}
	return a, nil
}

func (c *Client) quantity(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (quantityValue, error) {
	e, err := c.entity(ctx, entity)
	if err != nil {
		return quantityValue{}, err
	}
	if e.Missing != nil {
		return quantityValue{}, howmany.PropertyNotFound(entity, property)
	}
	q, ok, err := e.quantity(property)
	if err != nil {
		return quantityValue{}, err
	}
	if !ok {
		return quantityValue{}, howmany.PropertyNotFound(entity, property)
	}
	return q, nil
}
