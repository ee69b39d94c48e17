package environment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"eco-assistant/internal/domain"
)

const (
	defaultWAQIURL        = "https://api.waqi.info"
	defaultOpenWeatherURL = "https://api.openweathermap.org"
	defaultIntensityURL   = "https://api.carbonintensity.org.uk"
)

// Parameter names, relative to the client's prefix, holding provider tokens.
const (
	WAQITokenName        = "waqi-token"
	OpenWeatherTokenName = "openweather-token"
)

// tokenPayload is the expected JSON shape stored in SSM for each provider token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("environment: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// lazyToken fetches one provider token on first use. Only a successful fetch
// is cached; a failed one, including a canceled caller context, is retried on
// the next call.
type lazyToken struct {
	mu    sync.Mutex
	value string
}

func (t *lazyToken) get(ctx context.Context, getter Getter, name string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.value != "" {
		return t.value, nil
	}
	v, err := fetchToken(ctx, getter, name)
	if err != nil {
		return "", err
	}
	t.value = v
	return v, nil
}

// Client reads air quality (WAQI), current weather (OpenWeather) and UK grid
// carbon intensity (National Grid ESO).
type Client struct {
	waqiURL        string
	openWeatherURL string
	intensityURL   string
	httpClient     *http.Client
	getter         Getter
	paramPrefix    string

	waqiToken        lazyToken
	openWeatherToken lazyToken
}

type Option func(*Client)

func WithWAQIURL(u string) Option {
	return func(c *Client) { c.waqiURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithOpenWeatherURL(u string) Option {
	return func(c *Client) { c.openWeatherURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithIntensityURL(u string) Option {
	return func(c *Client) { c.intensityURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose provider tokens are read through ps under
// paramPrefix on first use. Carbon intensity needs no token.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("environment: paramstore getter must not be nil")
	}
	c := &Client{
		waqiURL:        defaultWAQIURL,
		openWeatherURL: defaultOpenWeatherURL,
		intensityURL:   defaultIntensityURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		getter:         ps,
		paramPrefix:    strings.TrimRight(strings.TrimSpace(paramPrefix), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) tokenName(name string) string {
	return c.paramPrefix + "/" + name
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

type waqiResponse struct {
	Status string `json:"status"`
	Data   struct {
		AQI  json.RawMessage `json:"aqi"`
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		IAQI map[string]struct {
			V float64 `json:"v"`
		} `json:"iaqi"`
	} `json:"data"`
}

// AirQuality returns the nearest station's reading for location.
func (c *Client) AirQuality(ctx context.Context, location string) (domain.AirQuality, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.AirQuality{}, errors.New("environment: location must not be empty")
	}
	token, err := c.waqiToken.get(ctx, c.getter, c.tokenName(WAQITokenName))
	if err != nil {
		return domain.AirQuality{}, err
	}

	endpoint := c.waqiURL + "/feed/" + url.PathEscape(location) + "/?token=" + url.QueryEscape(token)
	var payload waqiResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return domain.AirQuality{}, fmt.Errorf("environment: AirQuality: %w", err)
	}
	if payload.Status != "ok" {
		return domain.AirQuality{}, fmt.Errorf("environment: AirQuality: provider status %q", payload.Status)
	}
	aqi, err := strconv.Atoi(strings.Trim(string(payload.Data.AQI), `"`))
	if err != nil {
		return domain.AirQuality{}, fmt.Errorf("environment: AirQuality: no reading for %q", location)
	}

	name := payload.Data.City.Name
	if name == "" {
		name = location
	}
	return domain.AirQuality{
		AQI:      aqi,
		Status:   AQIStatus(aqi),
		PM25:     payload.Data.IAQI["pm25"].V,
		PM10:     payload.Data.IAQI["pm10"].V,
		Location: name,
	}, nil
}

// AQIStatus maps an AQI value to its US EPA band name.
func AQIStatus(aqi int) string {
	switch {
	case aqi <= 50:
		return "Good"
	case aqi <= 100:
		return "Moderate"
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups"
	case aqi <= 200:
		return "Unhealthy"
	case aqi <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Weather returns current conditions for location in metric units.
func (c *Client) Weather(ctx context.Context, location string) (domain.Weather, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.Weather{}, errors.New("environment: location must not be empty")
	}
	token, err := c.openWeatherToken.get(ctx, c.getter, c.tokenName(OpenWeatherTokenName))
	if err != nil {
		return domain.Weather{}, err
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("units", "metric")
	q.Set("appid", token)
	endpoint := c.openWeatherURL + "/data/2.5/weather?" + q.Encode()

	var payload openWeatherResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return domain.Weather{}, fmt.Errorf("environment: Weather: %w", err)
	}

	condition := "Unknown"
	if len(payload.Weather) > 0 {
		condition = titleWords(payload.Weather[0].Description)
		if condition == "" {
			condition = titleWords(payload.Weather[0].Main)
		}
	}
	name := payload.Name
	if name == "" {
		name = location
	}
	return domain.Weather{
		Temperature: payload.Main.Temp,
		Condition:   condition,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed * 3.6,
		Location:    name,
	}, nil
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

type intensityResponse struct {
	Data []struct {
		Intensity struct {
			Forecast *int   `json:"forecast"`
			Actual   *int   `json:"actual"`
			Index    string `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

// CarbonIntensity returns the current half-hour GB grid intensity, preferring
// the measured value over the forecast.
func (c *Client) CarbonIntensity(ctx context.Context) (domain.CarbonIntensity, error) {
	var payload intensityResponse
	if err := c.getJSON(ctx, c.intensityURL+"/intensity", &payload); err != nil {
		return domain.CarbonIntensity{}, fmt.Errorf("environment: CarbonIntensity: %w", err)
	}
	if len(payload.Data) == 0 {
		return domain.CarbonIntensity{}, errors.New("environment: CarbonIntensity: empty response")
	}
	cur := payload.Data[0].Intensity
	var value int
	switch {
	case cur.Actual != nil:
		value = *cur.Actual
	case cur.Forecast != nil:
		value = *cur.Forecast
	default:
		return domain.CarbonIntensity{}, errors.New("environment: CarbonIntensity: no intensity value")
	}
	return domain.CarbonIntensity{Intensity: value, Index: cur.Index, Region: "UK"}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.doJSONRequest(req, redactedURL(req.URL))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// redactedURL drops the query so tokens never reach logs or errors.
func redactedURL(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	return cp.String()
}

func fetchToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("environment: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "/" {
		return "", errors.New("environment: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("environment: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("environment: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("environment: token %s is empty", name)
	}
	return tp.Token, nil
}
