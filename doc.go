// Package howmany answers "how many of entity B fit inside entity A" by
// resolving a shared physical quantity (e.g. area) for both entities from an
// external knowledge store, reconciling their units, and dividing.
//
// The knowledge store is best-effort: an entity may declare a quantity
// directly, or only the dimensional components it decomposes into (e.g. a
// football pitch records its length and width but not its area). A Resolver
// bridges that gap by trying an ordered list of resolution strategies, and an
// Engine pairs up containers with entities to compute their ratios.
//
// Units are plain names compared by equality. A ConversionTable declares the
// numeric ratios between compatible units, and a DimensionRegistry declares
// which properties are products of others and how unit names compose under
// multiplication (metre × metre = square metre).
//
// Raw data access is delegated to a Fetcher. See the memstore, wikidata and
// neo4jstore packages for implementations.
package howmany
