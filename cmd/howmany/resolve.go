package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/go-digitaltwin/howmany"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ENTITY UNIT",
		Short: "Resolve the quantity of an entity in a unit",
		Long: `Resolve the quantity an entity has of a property (area by default),
expressed in the given unit.

The declared quantity is converted when the entity declares the property.
Otherwise, the property is computed from its components (e.g. an area from a
length and a width) when the entity declares them.`,
		Example: `  howmany resolve Q8524 "square metre"
  howmany resolve --property length "football pitch" foot`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			property, err := parseProperty(string(a.cfg.Property))
			if err != nil {
				return err
			}
			store, release, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer release()

			ids, err := lookupIDs(ctx, store, args[:1], a.cfg.Locale)
			if err != nil {
				return err
			}
			r := howmany.NewResolver(store, a.conversions, a.dimensions)
			q, err := r.Resolve(ctx, howmany.EntityID(ids[0]), property, howmany.Unit(args[1]))
			if err != nil {
				return withResolutionHint(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), q)
			return err
		},
	}
}

// propertyNames maps the names accepted on the command line to the default
// properties.
var propertyNames = map[string]howmany.PropertyID{
	"area":   howmany.Area,
	"length": howmany.Length,
	"width":  howmany.Width,
	"height": howmany.Height,
	"volume": howmany.Volume,
}

var propertyPattern = regexp.MustCompile(`^P[0-9]+$`)

// parseProperty accepts a property ID (e.g. P2046) or the name of a default
// property (e.g. area).
func parseProperty(s string) (howmany.PropertyID, error) {
	if propertyPattern.MatchString(s) {
		return howmany.PropertyID(s), nil
	}
	if p, ok := propertyNames[strings.ToLower(s)]; ok {
		return p, nil
	}
	return "", errors.WithHint(
		errors.Newf("unknown property %q", s),
		"use a property ID such as P2046, or one of area, length, width, height, and volume",
	)
}
