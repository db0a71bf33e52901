package howmany

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
)

// A Dimension declares that the value of a compound property equals the
// product of its component properties, all expressed in a single consistent
// unit (e.g. area = length × width).
type Dimension struct {
	Property   PropertyID   `mapstructure:"property" yaml:"property" json:"property"`
	Components []PropertyID `mapstructure:"components" yaml:"components" json:"components"`
}

// A UnitPower names the unit obtained by multiplying Base by itself Exponent
// times (e.g. metre to the power of 2 is "square metre").
type UnitPower struct {
	Base     Unit `mapstructure:"base" yaml:"base"`
	Exponent int  `mapstructure:"exponent" yaml:"exponent"`
	Unit     Unit `mapstructure:"unit" yaml:"unit"`
}

type power struct {
	base     Unit
	exponent int
}

// DimensionRegistry maps compound properties to the ordered list of component
// properties whose product reconstructs them. It also knows how unit names
// compose under multiplication, which lets a Resolver name the unit of a
// product and find the per-factor counterpart of a target unit.
//
// A DimensionRegistry is immutable once constructed and safe for concurrent
// use.
type DimensionRegistry struct {
	components map[PropertyID][]PropertyID
	powers     map[power]Unit
	roots      map[Unit]power
}

// NewDimensionRegistry builds a DimensionRegistry from the given breakdowns and
// unit powers. A property may be declared at most once, must not list itself
// as a component, and each unit may be the power of a single base.
func NewDimensionRegistry(dimensions []Dimension, powers []UnitPower) (*DimensionRegistry, error) {
	r := &DimensionRegistry{
		components: make(map[PropertyID][]PropertyID, len(dimensions)),
		powers:     make(map[power]Unit, len(powers)),
		roots:      make(map[Unit]power, len(powers)),
	}
	for _, d := range dimensions {
		if len(d.Components) == 0 {
			return nil, errors.Newf("dimension %s: no components", d.Property)
		}
		if slices.Contains(d.Components, d.Property) {
			return nil, errors.Newf("dimension %s: lists itself as a component", d.Property)
		}
		if _, dup := r.components[d.Property]; dup {
			return nil, errors.Newf("dimension %s: declared more than once", d.Property)
		}
		r.components[d.Property] = slices.Clone(d.Components)
	}
	for _, p := range powers {
		if p.Base == "" || p.Unit == "" {
			return nil, errors.Newf("unit power %q^%d = %q: empty unit name", p.Base, p.Exponent, p.Unit)
		}
		if p.Exponent < 2 {
			return nil, errors.Newf("unit power %q^%d = %q: exponent must be at least 2", p.Base, p.Exponent, p.Unit)
		}
		k := power{p.Base, p.Exponent}
		if u, dup := r.powers[k]; dup && u != p.Unit {
			return nil, errors.Newf("unit power %q^%d: named both %q and %q", p.Base, p.Exponent, u, p.Unit)
		}
		if prev, dup := r.roots[p.Unit]; dup && prev != k {
			return nil, errors.Newf("unit %q: power of both %q^%d and %q^%d", p.Unit, prev.base, prev.exponent, p.Base, p.Exponent)
		}
		r.powers[k] = p.Unit
		r.roots[p.Unit] = k
	}
	return r, nil
}

// Components returns the ordered component properties of the given compound
// property. It fails with ErrNoDecomposition if no breakdown is registered.
func (r *DimensionRegistry) Components(property PropertyID) ([]PropertyID, error) {
	c, ok := r.components[property]
	if !ok {
		return nil, &DecompositionError{Property: property}
	}
	return slices.Clone(c), nil
}

// Power returns the name of base raised to the n-th power. The first power of
// any unit is the unit itself.
func (r *DimensionRegistry) Power(base Unit, n int) (Unit, bool) {
	if n == 1 {
		return base, true
	}
	u, ok := r.powers[power{base, n}]
	return u, ok
}

// Root returns the unit whose n-th power is the given unit; it is the inverse
// of Power.
func (r *DimensionRegistry) Root(u Unit, n int) (Unit, bool) {
	if n == 1 {
		return u, true
	}
	p, ok := r.roots[u]
	if !ok || p.exponent != n {
		return "", false
	}
	return p.base, true
}

// Dimensions lists the registered breakdowns ordered by property.
func (r *DimensionRegistry) Dimensions() []Dimension {
	dims := make([]Dimension, 0, len(r.components))
	for p, c := range r.components {
		dims = append(dims, Dimension{Property: p, Components: slices.Clone(c)})
	}
	slices.SortFunc(dims, func(a, b Dimension) int {
		return cmp.Compare(a.Property, b.Property)
	})
	return dims
}
