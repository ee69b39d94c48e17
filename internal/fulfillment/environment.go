package fulfillment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"eco-assistant/internal/domain"
)

const (
	dataAirQuality      = "air_quality"
	dataWeather         = "weather"
	dataCarbonIntensity = "carbon_intensity"
)

// environmental answers one reading when data_type names it and all three,
// fetched concurrently, otherwise.
func (d *Dispatcher) environmental(ctx context.Context, req Request) (Response, error) {
	location := req.Parameters.String(domain.ParamLocation)
	if location == "" {
		location = d.defaultLocation
	}

	switch req.Parameters.String(domain.ParamDataType) {
	case dataAirQuality:
		aq, err := d.env.AirQuality(ctx, location)
		if err != nil {
			return Response{}, fmt.Errorf("air quality: %w", err)
		}
		return Response{Text: fmt.Sprintf("🌬️ Air Quality in %s:\n\nAQI: %d (%s)\nPM2.5: %g μg/m³\nPM10: %g μg/m³\n\n%s",
			aq.Location, aq.AQI, aq.Status, aq.PM25, aq.PM10, airQualityAdvice(aq.AQI))}, nil
	case dataWeather:
		w, err := d.env.Weather(ctx, location)
		if err != nil {
			return Response{}, fmt.Errorf("weather: %w", err)
		}
		return Response{Text: fmt.Sprintf("🌤️ Weather in %s:\n\nTemperature: %.1f°C\nCondition: %s\nHumidity: %d%%\nWind: %.1f km/h",
			w.Location, w.Temperature, w.Condition, w.Humidity, w.WindSpeed)}, nil
	case dataCarbonIntensity:
		ci, err := d.env.CarbonIntensity(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("carbon intensity: %w", err)
		}
		return Response{Text: fmt.Sprintf("⚡ Carbon Intensity in %s:\n\nCurrent: %d gCO₂/kWh\n\n%s",
			ci.Region, ci.Intensity, carbonIntensityAdvice(ci.Intensity))}, nil
	}

	var (
		aq domain.AirQuality
		w  domain.Weather
		ci domain.CarbonIntensity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		aq, err = d.env.AirQuality(gctx, location)
		return err
	})
	g.Go(func() (err error) {
		w, err = d.env.Weather(gctx, location)
		return err
	})
	g.Go(func() (err error) {
		ci, err = d.env.CarbonIntensity(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Response{}, fmt.Errorf("environmental conditions: %w", err)
	}
	return Response{Text: fmt.Sprintf("🌍 Environmental Conditions:\n\n🌬️ Air Quality: %d (%s)\n🌤️ Weather: %.1f°C, %s\n⚡ Carbon Intensity: %d gCO₂/kWh\n\nLocation: %s",
		aq.AQI, aq.Status, w.Temperature, w.Condition, ci.Intensity, w.Location)}, nil
}

func airQualityAdvice(aqi int) string {
	switch {
	case aqi <= 50:
		return "✅ Air quality is good! Great day for outdoor activities."
	case aqi <= 100:
		return "⚠️ Air quality is moderate. Sensitive individuals should limit outdoor activities."
	case aqi <= 150:
		return "🚨 Air quality is unhealthy for sensitive groups. Consider staying indoors."
	default:
		return "🚨 Air quality is unhealthy. Avoid outdoor activities and consider wearing a mask."
	}
}

func carbonIntensityAdvice(intensity int) string {
	switch {
	case intensity < 200:
		return "✅ Low carbon intensity! Good time to use electricity."
	case intensity < 400:
		return "⚠️ Moderate carbon intensity. Consider reducing energy use."
	default:
		return "🚨 High carbon intensity. Try to minimize electricity usage right now."
	}
}
