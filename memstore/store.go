// Package memstore provides an in-memory knowledge store implementing
// [howmany.Fetcher]. It is loaded from a YAML dataset, which makes it suitable
// for offline comparisons, fixtures, and seeding other stores.
//
// A dataset lists entities with their labels (by locale) and quantity claims
// (by property):
//
//	entities:
//	  - id: Q183
//	    labels: {en: Germany, de: Deutschland}
//	    claims:
//	      P2046: {amount: 357022, unit: square kilometre}
package memstore

import (
	"cmp"
	"context"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-digitaltwin/howmany"
)

// Store is an immutable in-memory knowledge store. It is safe for concurrent
// use.
type Store struct {
	entities map[howmany.EntityID]howmany.EntityRecord
}

// New returns a Store holding the given records. A later record replaces an
// earlier one with the same ID.
func New(records ...howmany.EntityRecord) *Store {
	s := &Store{entities: make(map[howmany.EntityID]howmany.EntityRecord, len(records))}
	for _, r := range records {
		s.entities[r.ID] = howmany.EntityRecord{
			ID:     r.ID,
			Labels: maps.Clone(r.Labels),
			Claims: maps.Clone(r.Claims),
		}
	}
	return s
}

type dataset struct {
	Entities []howmany.EntityRecord `yaml:"entities"`
}

// Load decodes a YAML dataset and returns a Store holding its entities. Unknown
// fields, duplicate IDs, and invalid quantities are rejected.
func Load(r io.Reader) (*Store, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var d dataset
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode yaml")
	}

	seen := make(map[howmany.EntityID]bool, len(d.Entities))
	for i, e := range d.Entities {
		if e.ID == "" {
			return nil, errors.Newf("entity #%d: missing id", i)
		}
		if seen[e.ID] {
			return nil, errors.Newf("entity %s: listed more than once", e.ID)
		}
		seen[e.ID] = true
		for p, q := range e.Claims {
			if q.Unit == "" {
				return nil, errors.Newf("entity %s: claim %s: missing unit", e.ID, p)
			}
			if err := q.Validate(); err != nil {
				return nil, errors.Wrapf(err, "entity %s: claim %s", e.ID, p)
			}
		}
	}
	return New(d.Entities...), nil
}

// LoadFile is like Load, but reads the dataset from the named file.
func LoadFile(name string) (*Store, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return s, nil
}

// Records returns the stored entities ordered by ID.
func (s *Store) Records() []howmany.EntityRecord {
	records := slices.Collect(maps.Values(s.entities))
	slices.SortFunc(records, func(a, b howmany.EntityRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return records
}

func (s *Store) FetchLabel(ctx context.Context, entity howmany.EntityID, locale string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	label, ok := s.entities[entity].Labels[locale]
	if !ok {
		return "", howmany.LabelNotFound(entity, locale)
	}
	return label, nil
}

func (s *Store) FetchPropertyUnit(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (howmany.Unit, error) {
	q, err := s.claim(ctx, entity, property)
	return q.Unit, err
}

func (s *Store) FetchPropertyAmount(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (float64, error) {
	q, err := s.claim(ctx, entity, property)
	return q.Amount, err
}

func (s *Store) claim(ctx context.Context, entity howmany.EntityID, property howmany.PropertyID) (howmany.Quantity, error) {
	if err := ctx.Err(); err != nil {
		return howmany.Quantity{}, err
	}
	q, ok := s.entities[entity].Claims[property]
	if !ok {
		return howmany.Quantity{}, howmany.PropertyNotFound(entity, property)
	}
	return q, nil
}

// LookupID returns the ID of the entity labelled exactly as given in the given
// locale. When several entities share that label, the smallest ID wins. When
// none does, the label is taken for an ID if an entity has that ID.
func (s *Store) LookupID(ctx context.Context, label, locale string) (howmany.EntityID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range s.Records() {
		if r.Labels[locale] == label {
			return r.ID, nil
		}
	}
	if _, ok := s.entities[howmany.EntityID(label)]; ok {
		return howmany.EntityID(label), nil
	}
	return "", errors.Wrapf(howmany.ErrLabelNotFound, "no entity labelled %q in locale %q", label, locale)
}
