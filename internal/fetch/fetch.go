// Package fetch pulls daily weather observations from upstream APIs.
package fetch

import (
	"context"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// CityQuery identifies one city to fetch observations for.
type CityQuery struct {
	// ID is the stable city identifier used to join against reference
	// data downstream.
	ID int64 `yaml:"id"`
	// Name is the city name as the upstream API expects it.
	Name string `yaml:"name"`
	// Country is the ISO country code, appended to disambiguate
	// queries (e.g. "Portland,US").
	Country string `yaml:"country"`
}

// Batch is the result of one daily fetch: decoded observation rows
// plus the concatenated raw payloads for archival.
type Batch struct {
	Rows []rows.Row
	Raw  []byte
}

// Source produces the observation rows for one logical date.
type Source interface {
	FetchDaily(ctx context.Context, date rows.LogicalDate) (*Batch, error)
}
