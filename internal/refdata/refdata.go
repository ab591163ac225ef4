// Package refdata loads the static city reference table used to
// enrich observations in the gold layer.
package refdata

import (
	"context"
	"fmt"

	"github.com/jszwec/csvutil"
	"gocloud.dev/blob"
)

// City is one row of the city reference CSV.
type City struct {
	CityID     int64   `csv:"city_id"`
	City       string  `csv:"city"`
	Country    string  `csv:"country"`
	Population int64   `csv:"population"`
	LandAreaKm float64 `csv:"land_area_km2"`
}

// Load reads and parses the reference CSV from object storage.
func Load(ctx context.Context, bucket *blob.Bucket, key string) ([]City, error) {
	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading reference data %s: %w", key, err)
	}
	return Parse(data)
}

// Parse decodes city reference CSV content.
func Parse(data []byte) ([]City, error) {
	var cities []City
	if err := csvutil.Unmarshal(data, &cities); err != nil {
		return nil, fmt.Errorf("parsing city reference CSV: %w", err)
	}
	return cities, nil
}

// Index maps cities by their ID for join lookups.
func Index(cities []City) map[int64]City {
	idx := make(map[int64]City, len(cities))
	for _, c := range cities {
		idx[c.CityID] = c
	}
	return idx
}
