package domain

// AirQuality is a point-in-time air quality reading.
type AirQuality struct {
	AQI      int
	Status   string
	PM25     float64
	PM10     float64
	Location string
}

// Weather is a current-conditions reading.
type Weather struct {
	Temperature float64
	Condition   string
	Humidity    int
	WindSpeed   float64 // km/h
	Location    string
}

// CarbonIntensity is the grid carbon intensity in gCO2/kWh.
type CarbonIntensity struct {
	Intensity int
	Index     string
	Region    string
}
