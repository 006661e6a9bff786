package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/places"
)

const maxReviewsPerVenue = 5

// HTTPClient talks to a content service that generates venue descriptions
// and review analysis from provider fields and raw review text.
type HTTPClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{Endpoint: endpoint, APIKey: apiKey, Client: &http.Client{Timeout: 15 * time.Second}}
}

type enrichRequest struct {
	Venues []venueSummary `json:"venues"`
}

type venueSummary struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Rating     float64  `json:"rating"`
	Reviews    int      `json:"reviews"`
	Address    string   `json:"address"`
	PriceTier  string   `json:"priceTier"`
	ReviewText []string `json:"reviewText,omitempty"`
}

type enrichResult struct {
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	CuisineTags    []string           `json:"cuisineTags"`
	VibeTags       []string           `json:"vibeTags"`
	BestFor        []string           `json:"bestFor"`
	SignatureDish  string             `json:"signatureDish"`
	Sentiment      map[string]float64 `json:"sentiment"`
	StandoutDishes []string           `json:"standoutDishes"`
	ReviewSummary  string             `json:"reviewSummary"`
	Highlights     []string           `json:"highlights"`
}

// Describe enriches the candidates in one batch call, retrying once before
// declaring the collaborator unavailable.
func (c *HTTPClient) Describe(ctx context.Context, candidates []places.Place) (map[string]models.Enrichment, error) {
	if len(candidates) == 0 {
		return map[string]models.Enrichment{}, nil
	}

	req := enrichRequest{Venues: make([]venueSummary, 0, len(candidates))}
	for _, p := range candidates {
		vs := venueSummary{
			Name:       p.Name,
			Categories: p.Categories,
			Rating:     p.Rating,
			Reviews:    p.RatingCount,
			Address:    p.Address,
			PriceTier:  p.PriceTier,
		}
		for i, r := range p.Reviews {
			if i == maxReviewsPerVenue {
				break
			}
			vs.ReviewText = append(vs.ReviewText, fmt.Sprintf("Rating: %d/5\n%s", r.Rating, r.Text))
		}
		req.Venues = append(req.Venues, vs)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		out, err := c.post(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, body enrichRequest) (map[string]models.Enrichment, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment: status %d", resp.StatusCode)
	}

	var results []enrichResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}

	out := make(map[string]models.Enrichment, len(results))
	for _, r := range results {
		out[r.Name] = models.Enrichment{
			Description:    r.Description,
			CuisineTags:    r.CuisineTags,
			VibeTags:       r.VibeTags,
			BestFor:        r.BestFor,
			SignatureDish:  r.SignatureDish,
			Sentiment:      normalizeSentiment(r.Sentiment),
			StandoutDishes: r.StandoutDishes,
			Summary:        r.ReviewSummary,
			Highlights:     r.Highlights,
		}
	}
	return out, nil
}

// normalizeSentiment rescales the breakdown so the shares sum to 1, and
// drops breakdowns that carry no signal at all.
func normalizeSentiment(raw map[string]float64) *models.Sentiment {
	if raw == nil {
		return nil
	}
	s := models.Sentiment{Positive: raw["positive"], Neutral: raw["neutral"], Negative: raw["negative"]}
	total := s.Positive + s.Neutral + s.Negative
	if total <= 0 {
		return nil
	}
	s.Positive /= total
	s.Neutral /= total
	s.Negative /= total
	return &s
}
