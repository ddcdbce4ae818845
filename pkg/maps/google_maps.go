package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) TravelETA(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (time.Duration, error) {
	req := &maps.DistanceMatrixRequest{
		Origins:      []string{fmt.Sprintf("%f,%f", fromLat, fromLng)},
		Destinations: []string{fmt.Sprintf("%f,%f", toLat, toLng)},
		Mode:         maps.TravelModeDriving,
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("distance matrix request failed: %w", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance matrix returned no results")
	}

	element := resp.Rows[0].Elements[0]
	if element.Status != "OK" {
		return 0, fmt.Errorf("distance matrix element status: %s", element.Status)
	}

	return element.Duration, nil
}
