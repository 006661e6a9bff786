package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/meetpoint/internal/models"
)

const fieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.location,places.rating,places.userRatingCount," +
	"places.priceLevel,places.googleMapsUri,places.types," +
	"places.reviews,places.editorialSummary"

// HTTPClient talks to a Places-style searchNearby endpoint.
type HTTPClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{Endpoint: endpoint, APIKey: apiKey, Client: &http.Client{Timeout: 5 * time.Second}}
}

type searchRequest struct {
	IncludedTypes       []string            `json:"includedTypes"`
	MaxResultCount      int                 `json:"maxResultCount"`
	RankPreference      string              `json:"rankPreference"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string   `json:"formattedAddress"`
		Location         latLng   `json:"location"`
		Rating           float64  `json:"rating"`
		UserRatingCount  int      `json:"userRatingCount"`
		PriceLevel       string   `json:"priceLevel"`
		GoogleMapsURI    string   `json:"googleMapsUri"`
		Types            []string `json:"types"`
		EditorialSummary struct {
			Text string `json:"text"`
		} `json:"editorialSummary"`
		Reviews []struct {
			Rating int `json:"rating"`
			Text   struct {
				Text string `json:"text"`
			} `json:"text"`
		} `json:"reviews"`
	} `json:"places"`
}

// SearchNearby posts a circle search and filters the hits down to the
// query's quality bars (the provider ranks but does not filter).
func (c *HTTPClient) SearchNearby(ctx context.Context, q Query) ([]Place, error) {
	body, err := json.Marshal(searchRequest{
		IncludedTypes:  q.Categories,
		MaxResultCount: 20,
		RankPreference: "POPULARITY",
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: latLng{Latitude: q.Center.Lat, Longitude: q.Center.Lng},
				Radius: q.RadiusMeters,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place search: status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	results := make([]Place, 0, len(out.Places))
	for _, p := range out.Places {
		if p.Rating < q.MinRating || p.UserRatingCount < q.MinReviews {
			continue
		}
		place := Place{
			ID:          p.ID,
			Name:        p.DisplayName.Text,
			Address:     p.FormattedAddress,
			Loc:         models.Coord{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
			Rating:      p.Rating,
			RatingCount: p.UserRatingCount,
			PriceTier:   p.PriceLevel,
			MapLink:     p.GoogleMapsURI,
			Categories:  p.Types,
			Summary:     p.EditorialSummary.Text,
		}
		for _, r := range p.Reviews {
			if r.Text.Text == "" {
				continue
			}
			place.Reviews = append(place.Reviews, Review{Rating: r.Rating, Text: r.Text.Text})
		}
		results = append(results, place)
	}
	return results, nil
}
