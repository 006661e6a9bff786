package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/meetpoint/internal/models"
)

// OSRMClient performs travel-time lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

// profile maps a travel mode onto an OSRM routing profile. OSRM has no
// transit profile; transit requests are approximated with driving.
func profile(mode models.TravelMode) string {
	switch mode {
	case models.ModeWalking:
		return "foot"
	case models.ModeCycling:
		return "bike"
	default:
		return "driving"
	}
}

// Seconds queries OSRM /route between points and returns duration in seconds.
func (o *OSRMClient) Seconds(ctx context.Context, from, to models.Coord, mode models.TravelMode) (float64, error) {
	// OSRM route query: /route/v1/{profile}/{lng1},{lat1};{lng2},{lat2}?overview=false
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=false",
		o.Endpoint, profile(mode), from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Duration float64 `json:"duration"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return 0, fmt.Errorf("osrm %s: %w", out.Code, ErrNoRoute)
	}
	return out.Routes[0].Duration, nil
}
