package howmany

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// An EntityID identifies a real-world entity in the external knowledge store
// (e.g. "Q183"). It is opaque; only equality is meaningful.
type EntityID string

// A PropertyID identifies a measurable characteristic of entities (e.g. "P2046"
// for area).
type PropertyID string

// A Unit names a unit of measurement (e.g. "square kilometre"). Units are
// compared by name; no unit-string parsing is performed.
type Unit string

// Quantity pairs a numeric amount with its unit.
type Quantity struct {
	Amount float64 `yaml:"amount"`
	Unit   Unit    `yaml:"unit"`
}

func (q Quantity) String() string {
	return strconv.FormatFloat(q.Amount, 'g', -1, 64) + " " + string(q.Unit)
}

// Validate reports an ErrInvalidQuantity when the amount is not a finite,
// non-negative number.
func (q Quantity) Validate() error {
	if math.IsNaN(q.Amount) || math.IsInf(q.Amount, 0) {
		return errors.Wrapf(ErrInvalidQuantity, "amount %v is not finite", q.Amount)
	}
	if q.Amount < 0 {
		return errors.Wrapf(ErrInvalidQuantity, "amount %v is negative", q.Amount)
	}
	return nil
}
