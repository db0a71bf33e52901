package wikidata

import (
	"context"
	"net/url"
	"regexp"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-digitaltwin/howmany"
)

var idPattern = regexp.MustCompile(`^[QP][0-9]+$`)

// LookupID returns the ID of the item labelled exactly as given in the given
// locale. Inputs that already are entity or property IDs (e.g. "Q183") are
// returned as is.
//
// Search results matching an alias or a different case are not accepted: the
// label must match. LookupID fails with howmany.ErrLabelNotFound otherwise.
func (c *Client) LookupID(ctx context.Context, text, locale string) (howmany.EntityID, error) {
	if idPattern.MatchString(text) {
		return howmany.EntityID(text), nil
	}
	ctx, span := tracer.Start(ctx, "Client.LookupID", trace.WithAttributes(
		attribute.String("text", text),
		attribute.String("locale", locale),
	))
	defer span.End()

	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", text)
	params.Set("language", locale)
	params.Set("uselang", locale)
	params.Set("type", "item")
	params.Set("limit", "50")
	var body struct {
		Search []struct {
			ID    string `json:"id"`
			Match struct {
				Type     string `json:"type"`
				Language string `json:"language"`
				Text     string `json:"text"`
			} `json:"match"`
		} `json:"search"`
	}
	if err := c.get(ctx, params, &body); err != nil {
		span.RecordError(err)
		return "", errors.Wrapf(err, "search %q", text)
	}
	for _, r := range body.Search {
		if r.Match.Type == "label" && r.Match.Language == locale && r.Match.Text == text {
			return howmany.EntityID(r.ID), nil
		}
	}
	return "", errors.Wrapf(howmany.ErrLabelNotFound, "no item labelled %q in locale %q", text, locale)
}
