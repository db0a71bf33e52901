package howmany

// Property identifiers of the measurable characteristics known to the default
// tables. They follow the Wikidata property numbering.
const (
	Area   PropertyID = "P2046"
	Length PropertyID = "P2043"
	Width  PropertyID = "P2049"
	Height PropertyID = "P2048"
	Volume PropertyID = "P2234"
)

// DefaultDimensions declares area as length × width and volume as length ×
// width × height.
var DefaultDimensions = []Dimension{
	{Property: Area, Components: []PropertyID{Length, Width}},
	{Property: Volume, Components: []PropertyID{Length, Width, Height}},
}

// DefaultPowers names the square and cubic counterparts of the common metric
// and imperial length units.
var DefaultPowers = []UnitPower{
	{Base: "millimetre", Exponent: 2, Unit: "square millimetre"},
	{Base: "centimetre", Exponent: 2, Unit: "square centimetre"},
	{Base: "metre", Exponent: 2, Unit: "square metre"},
	{Base: "kilometre", Exponent: 2, Unit: "square kilometre"},
	{Base: "inch", Exponent: 2, Unit: "square inch"},
	{Base: "foot", Exponent: 2, Unit: "square foot"},
	{Base: "yard", Exponent: 2, Unit: "square yard"},
	{Base: "mile", Exponent: 2, Unit: "square mile"},

	{Base: "centimetre", Exponent: 3, Unit: "cubic centimetre"},
	{Base: "metre", Exponent: 3, Unit: "cubic metre"},
	{Base: "kilometre", Exponent: 3, Unit: "cubic kilometre"},
	{Base: "foot", Exponent: 3, Unit: "cubic foot"},
	{Base: "mile", Exponent: 3, Unit: "cubic mile"},
}

// DefaultConversions declares the conversion edges between the units named in
// DefaultPowers (plus a few area and volume units without a length base).
// Inverse edges are synthesised by NewConversionTable.
var DefaultConversions = []ConversionEdge{
	// Length.
	{From: "kilometre", To: "metre", Ratio: 1e3},
	{From: "kilometre", To: "centimetre", Ratio: 1e5},
	{From: "metre", To: "centimetre", Ratio: 1e2},
	{From: "metre", To: "millimetre", Ratio: 1e3},
	{From: "centimetre", To: "millimetre", Ratio: 10},
	{From: "mile", To: "kilometre", Ratio: 1.609344},
	{From: "mile", To: "metre", Ratio: 1609.344},
	{From: "mile", To: "yard", Ratio: 1760},
	{From: "mile", To: "foot", Ratio: 5280},
	{From: "yard", To: "metre", Ratio: 0.9144},
	{From: "yard", To: "foot", Ratio: 3},
	{From: "foot", To: "metre", Ratio: 0.3048},
	{From: "foot", To: "inch", Ratio: 12},
	{From: "inch", To: "metre", Ratio: 0.0254},
	{From: "inch", To: "centimetre", Ratio: 2.54},

	// Area.
	{From: "square kilometre", To: "square metre", Ratio: 1e6},
	{From: "square kilometre", To: "square centimetre", Ratio: 1e10},
	{From: "square metre", To: "square centimetre", Ratio: 1e4},
	{From: "square metre", To: "square millimetre", Ratio: 1e6},
	{From: "hectare", To: "square metre", Ratio: 1e4},
	{From: "hectare", To: "square kilometre", Ratio: 1e-2},
	{From: "square mile", To: "square kilometre", Ratio: 2.589988110336},
	{From: "square mile", To: "square metre", Ratio: 2589988.110336},
	{From: "square mile", To: "acre", Ratio: 640},
	{From: "acre", To: "square metre", Ratio: 4046.8564224},
	{From: "acre", To: "square kilometre", Ratio: 4.0468564224e-3},
	{From: "square yard", To: "square metre", Ratio: 0.83612736},
	{From: "square foot", To: "square metre", Ratio: 0.09290304},
	{From: "square inch", To: "square centimetre", Ratio: 6.4516},

	// Volume.
	{From: "cubic kilometre", To: "cubic metre", Ratio: 1e9},
	{From: "cubic metre", To: "cubic centimetre", Ratio: 1e6},
	{From: "cubic metre", To: "litre", Ratio: 1e3},
	{From: "litre", To: "cubic centimetre", Ratio: 1e3},
	{From: "cubic mile", To: "cubic kilometre", Ratio: 4.168181825440579584},
	{From: "cubic foot", To: "cubic metre", Ratio: 0.028316846592},
	{From: "cubic foot", To: "litre", Ratio: 28.316846592},
}

// DefaultConversionTable returns a ConversionTable built from
// DefaultConversions. Call it once during initialisation and share the result.
func DefaultConversionTable() (*ConversionTable, error) {
	return NewConversionTable(DefaultConversions...)
}

// DefaultDimensionRegistry returns a DimensionRegistry built from
// DefaultDimensions and DefaultPowers.
func DefaultDimensionRegistry() (*DimensionRegistry, error) {
	return NewDimensionRegistry(DefaultDimensions, DefaultPowers)
}
