package pipeline

import (
	"fmt"
	"sort"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refdata"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// TemperatureCategory buckets a temperature in degrees Celsius.
func TemperatureCategory(t float64) string {
	switch {
	case t < 0:
		return "Freezing"
	case t < 10:
		return "Cold"
	case t < 20:
		return "Mild"
	default:
		return "Warm"
	}
}

type cityAccum struct {
	city, country string
	count         int64
	sumTemp       float64
	minTemp       float64
	maxTemp       float64
	sumFeels      float64
	sumHumidity   float64
	sumPressure   float64
	sumWind       float64
}

// TransformSilver aggregates raw observations into one row per city
// for the given date. Output order is deterministic by city_id.
func TransformSilver(bronze []rows.Row, date rows.LogicalDate) ([]rows.Row, error) {
	accums := make(map[int64]*cityAccum)

	for i, r := range bronze {
		cityID := r.Int64("city_id")
		if cityID == 0 {
			return nil, refresh.SchemaErr(fmt.Errorf("observation %d has no city_id", i))
		}
		temp := r.Float64("temperature")

		a, ok := accums[cityID]
		if !ok {
			a = &cityAccum{
				city:    r.String("city"),
				country: r.String("country"),
				minTemp: temp,
				maxTemp: temp,
			}
			accums[cityID] = a
		}

		a.count++
		a.sumTemp += temp
		if temp < a.minTemp {
			a.minTemp = temp
		}
		if temp > a.maxTemp {
			a.maxTemp = temp
		}
		// Optional measures default to zero when absent.
		a.sumFeels += r.Float64("feels_like")
		a.sumHumidity += r.Float64("humidity")
		a.sumPressure += r.Float64("pressure")
		a.sumWind += r.Float64("wind_speed")
	}

	cityIDs := make([]int64, 0, len(accums))
	for id := range accums {
		cityIDs = append(cityIDs, id)
	}
	sort.Slice(cityIDs, func(i, j int) bool { return cityIDs[i] < cityIDs[j] })

	out := make([]rows.Row, 0, len(cityIDs))
	for _, id := range cityIDs {
		a := accums[id]
		n := float64(a.count)
		avgTemp := a.sumTemp / n
		out = append(out, rows.Row{
			"city_id":              id,
			"city":                 a.city,
			"country":              a.country,
			"avg_temperature":      avgTemp,
			"min_temperature":      a.minTemp,
			"max_temperature":      a.maxTemp,
			"avg_feels_like":       a.sumFeels / n,
			"avg_humidity":         a.sumHumidity / n,
			"avg_pressure":         a.sumPressure / n,
			"avg_wind_speed":       a.sumWind / n,
			"temperature_category": TemperatureCategory(avgTemp),
			"observation_count":    a.count,
			"date_id":              date.String(),
		})
	}
	return out, nil
}

// TransformGold joins aggregated city rows with the city reference
// table. The join is inner: cities missing from the reference data are
// dropped.
func TransformGold(silver []rows.Row, cities map[int64]refdata.City) ([]rows.Row, error) {
	out := make([]rows.Row, 0, len(silver))
	for i, r := range silver {
		cityID := r.Int64("city_id")
		if cityID == 0 {
			return nil, refresh.SchemaErr(fmt.Errorf("aggregate row %d has no city_id", i))
		}
		ref, ok := cities[cityID]
		if !ok {
			continue
		}

		enriched := r.Clone()
		enriched["population"] = ref.Population
		enriched["land_area_km2"] = ref.LandAreaKm
		if ref.LandAreaKm > 0 {
			enriched["population_density"] = float64(ref.Population) / ref.LandAreaKm
		} else {
			enriched["population_density"] = nil
		}
		out = append(out, enriched)
	}
	return out, nil
}
