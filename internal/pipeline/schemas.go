package pipeline

import "github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"

// BronzeSchema describes raw per-observation weather rows as fetched.
func BronzeSchema() rows.Schema {
	return rows.NewSchema(
		rows.Column{Name: "city_id", Type: rows.TypeInt64, Required: true},
		rows.Column{Name: "city", Type: rows.TypeString, Required: true},
		rows.Column{Name: "country", Type: rows.TypeString, Required: true},
		rows.Column{Name: "temperature", Type: rows.TypeFloat64, Required: true},
		rows.Column{Name: "feels_like", Type: rows.TypeFloat64},
		rows.Column{Name: "humidity", Type: rows.TypeInt64},
		rows.Column{Name: "pressure", Type: rows.TypeInt64},
		rows.Column{Name: "weather", Type: rows.TypeString},
		rows.Column{Name: "weather_code", Type: rows.TypeInt64},
		rows.Column{Name: "wind_speed", Type: rows.TypeFloat64},
		rows.Column{Name: "timestamp", Type: rows.TypeTimestamp, Required: true},
		rows.Column{Name: "date_id", Type: rows.TypeString, Required: true},
	)
}

// SilverSchema describes one aggregated row per city and day.
func SilverSchema() rows.Schema {
	return rows.NewSchema(
		rows.Column{Name: "city_id", Type: rows.TypeInt64, Required: true},
		rows.Column{Name: "city", Type: rows.TypeString, Required: true},
		rows.Column{Name: "country", Type: rows.TypeString, Required: true},
		rows.Column{Name: "avg_temperature", Type: rows.TypeFloat64, Required: true},
		rows.Column{Name: "min_temperature", Type: rows.TypeFloat64},
		rows.Column{Name: "max_temperature", Type: rows.TypeFloat64},
		rows.Column{Name: "avg_feels_like", Type: rows.TypeFloat64},
		rows.Column{Name: "avg_humidity", Type: rows.TypeFloat64},
		rows.Column{Name: "avg_pressure", Type: rows.TypeFloat64},
		rows.Column{Name: "avg_wind_speed", Type: rows.TypeFloat64},
		rows.Column{Name: "temperature_category", Type: rows.TypeString, Required: true},
		rows.Column{Name: "observation_count", Type: rows.TypeInt64, Required: true},
		rows.Column{Name: "date_id", Type: rows.TypeString, Required: true},
	)
}

// GoldSchema is the silver shape enriched with city reference data.
func GoldSchema() rows.Schema {
	sch := SilverSchema()
	cols := append([]rows.Column(nil), sch.Columns...)
	cols = append(cols,
		rows.Column{Name: "population", Type: rows.TypeInt64, Required: true},
		rows.Column{Name: "land_area_km2", Type: rows.TypeFloat64, Required: true},
		rows.Column{Name: "population_density", Type: rows.TypeFloat64},
	)
	return rows.NewSchema(cols...)
}
