package types

// Station is a weather-observation site identified by its station code.
type Station struct {
	ID string `json:"station"`
}

// Precipitation is one (date, prcp) pair from the measurement table.
// Value is nil when no rainfall was recorded.
type Precipitation struct {
	Date  Date     `json:"date"`
	Value *float64 `json:"prcp"`
}

// TemperatureStats holds min/avg/max over a filtered set of temperature
// observations. All fields are nil when no rows matched.
// Fields are declared in key order so the encoded object is sorted.
type TemperatureStats struct {
	Avg *float64 `json:"avg"`
	Max *float64 `json:"max"`
	Min *float64 `json:"min"`
}

// TemperatureHistogram is the rendered observation histogram for one station.
type TemperatureHistogram struct {
	StationID string
	Cutoff    Date
	Count     int
	PNG       []byte
}
