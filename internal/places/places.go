package places

import (
	"context"

	"github.com/example/meetpoint/internal/models"
)

// Place is a raw search hit from the place-search provider. Reviews ride
// along so the enrichment step can analyze them without a second fetch.
type Place struct {
	ID          string
	Name        string
	Address     string
	Loc         models.Coord
	Rating      float64
	RatingCount int
	PriceTier   string
	MapLink     string
	Categories  []string
	Summary     string // provider editorial summary, if any
	Reviews     []Review
}

type Review struct {
	Rating int
	Text   string
}

// Query bounds one nearby search. The quality bars are part of the
// contract: implementations must not return places below them.
type Query struct {
	Center       models.Coord
	RadiusMeters float64
	Categories   []string
	MinRating    float64
	MinReviews   int
}

// Client is the interface the venue resolver searches through.
type Client interface {
	SearchNearby(ctx context.Context, q Query) ([]Place, error)
}
