package howmany

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// The error kinds reported by this package. Match them with errors.Is; the
// concrete errors returned carry the entity, property, or units involved and
// can be inspected with errors.As.
var (
	// ErrPropertyNotFound indicates the knowledge store has no value for a
	// property on an entity.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrUnitNotConvertible indicates no declared (or inverted) conversion edge
	// exists between two units.
	ErrUnitNotConvertible = errors.New("unit not convertible")
	// ErrNoDecomposition indicates no dimensional breakdown is registered for a
	// property.
	ErrNoDecomposition = errors.New("no decomposition")
	// ErrDimensionUnresolved indicates a decomposition rule exists but one of its
	// component properties could not be fetched.
	ErrDimensionUnresolved = errors.New("dimension unresolved")
	// ErrQuantityUnresolvable is the terminal error for a single entity: neither
	// a direct lookup nor a decomposition produced a quantity.
	ErrQuantityUnresolvable = errors.New("quantity unresolvable")
	// ErrLabelNotFound indicates an entity has no label in the requested locale.
	ErrLabelNotFound = errors.New("label not found")
	// ErrDivisionByZero indicates an entity resolved to a zero amount while
	// used as the denominator of a ratio.
	ErrDivisionByZero = errors.New("division by zero")

	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidRequest  = errors.New("invalid request")
)

// A PropertyError reports a failure to obtain a property of an entity. Kind is
// one of ErrPropertyNotFound, ErrDimensionUnresolved, or
// ErrQuantityUnresolvable.
type PropertyError struct {
	Kind     error
	Entity   EntityID
	Property PropertyID
	Err      error // The underlying cause, if any.
}

func (e *PropertyError) Error() string {
	msg := fmt.Sprintf("%v: entity %s, property %s", e.Kind, e.Entity, e.Property)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PropertyError) Is(target error) bool { return target == e.Kind }

func (e *PropertyError) Unwrap() error { return e.Err }

// PropertyNotFound returns the error Fetcher implementations report when the
// given entity has no value for the given property.
func PropertyNotFound(entity EntityID, property PropertyID) error {
	return &PropertyError{Kind: ErrPropertyNotFound, Entity: entity, Property: property}
}

// DimensionUnresolved wraps the failure to fetch a component of a decomposed
// property.
func DimensionUnresolved(entity EntityID, property PropertyID, cause error) error {
	return &PropertyError{Kind: ErrDimensionUnresolved, Entity: entity, Property: property, Err: cause}
}

// QuantityUnresolvable wraps the last failure of an exhausted resolution.
func QuantityUnresolvable(entity EntityID, property PropertyID, cause error) error {
	return &PropertyError{Kind: ErrQuantityUnresolvable, Entity: entity, Property: property, Err: cause}
}

// A ConversionError reports a missing conversion edge between two units.
type ConversionError struct {
	From, To Unit
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%v: from %q to %q", ErrUnitNotConvertible, e.From, e.To)
}

func (e *ConversionError) Is(target error) bool { return target == ErrUnitNotConvertible }

// UnitNotConvertible returns the error reported when no conversion edge exists
// between the given units.
func UnitNotConvertible(from, to Unit) error {
	return errors.WithHintf(&ConversionError{From: from, To: to},
		"declare a conversion edge between %q and %q", from, to)
}

// A DecompositionError reports a property without a registered breakdown.
type DecompositionError struct {
	Property PropertyID
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("%v: property %s", ErrNoDecomposition, e.Property)
}

func (e *DecompositionError) Is(target error) bool { return target == ErrNoDecomposition }

// A LabelError reports an entity without a label in the requested locale.
type LabelError struct {
	Entity EntityID
	Locale string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%v: entity %s, locale %q", ErrLabelNotFound, e.Entity, e.Locale)
}

func (e *LabelError) Is(target error) bool { return target == ErrLabelNotFound }

// LabelNotFound returns the error Fetcher implementations report when the
// given entity has no label in the given locale.
func LabelNotFound(entity EntityID, locale string) error {
	return &LabelError{Entity: entity, Locale: locale}
}
