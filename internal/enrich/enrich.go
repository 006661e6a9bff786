package enrich

import (
	"context"
	"errors"

	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/places"
)

// ErrUnavailable reports that the enrichment collaborator could not serve
// the request. Venues are kept with empty enrichment fields in that case.
var ErrUnavailable = errors.New("enrichment unavailable")

// Client is the optional content-enrichment collaborator. It returns
// enrichments keyed by venue name; venues missing from the map simply get
// no enrichment.
type Client interface {
	Describe(ctx context.Context, candidates []places.Place) (map[string]models.Enrichment, error)
}
