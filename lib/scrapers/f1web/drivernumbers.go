package f1web

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// driverNumbers caches the per-season driver-code to car-number
// mapping for the lifetime of the client. Reads are safe under
// concurrent season batches; population is idempotent since the values
// are stable for a season once published.
type driverNumbers struct {
	source StandingsSource

	mu    sync.Mutex
	cache *lru.Cache[int, map[string]int]
}

func newDriverNumbers(source StandingsSource) *driverNumbers {
	cache, _ := lru.New[int, map[string]int](8)
	return &driverNumbers{source: source, cache: cache}
}

// lookup returns the season's mapping, fetching it from the standings
// source on first use.
func (d *driverNumbers) lookup(ctx context.Context, season int) (map[string]int, error) {
	if numbers, ok := d.cache.Get(season); ok {
		return numbers, nil
	}

	if d.source == nil {
		return nil, fmt.Errorf("no driver standings source configured")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if numbers, ok := d.cache.Get(season); ok {
		return numbers, nil
	}

	numbers, err := d.source.DriverStandings(ctx, season)
	if err != nil {
		return nil, err
	}
	d.cache.Add(season, numbers)
	return numbers, nil
}
