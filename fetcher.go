package howmany

import "context"

// A Fetcher reads raw records from the external knowledge store. The store is
// usually network-backed, so every method is fallible and honours context
// cancellation; timeouts and retries belong to the implementation.
//
// Implementations must report absent values with the errors returned by
// PropertyNotFound and LabelNotFound (or errors wrapping them), which is how a
// Resolver tells a missing value from a broken store.
//
// A Fetcher is called concurrently.
type Fetcher interface {
	// FetchLabel returns the human-readable label of the entity in the given
	// locale (e.g. "en").
	FetchLabel(ctx context.Context, entity EntityID, locale string) (string, error)
	// FetchPropertyUnit returns the unit in which the entity declares the
	// property.
	FetchPropertyUnit(ctx context.Context, entity EntityID, property PropertyID) (Unit, error)
	// FetchPropertyAmount returns the amount the entity declares for the
	// property, expressed in the unit returned by FetchPropertyUnit.
	FetchPropertyAmount(ctx context.Context, entity EntityID, property PropertyID) (float64, error)
}

// An EntityRecord is the raw record of an entity, as kept by knowledge stores
// that can be loaded from a dataset.
type EntityRecord struct {
	ID     EntityID                `yaml:"id"`
	Labels map[string]string       `yaml:"labels"` // Keyed by locale.
	Claims map[PropertyID]Quantity `yaml:"claims"`
}
