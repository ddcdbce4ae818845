package maps

import (
	"context"
	"time"
)

// ETAProvider answers road travel time between two points. Dispatch falls back
// to the straight-line heuristic whenever no provider is configured or the
// provider errors.
type ETAProvider interface {
	TravelETA(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (time.Duration, error)
}
