// Package weather fetches a short forecast for the lodge's location
// from the Open-Meteo API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alpenlodge/concierge/internal/cache"
)

const (
	defaultBaseURL = "https://api.open-meteo.com"
	forecastTTL    = 5 * time.Minute
	forecastDays   = 3
)

// Day is one forecast day.
type Day struct {
	Date        string  `json:"date"`
	MinC        float64 `json:"minC"`
	MaxC        float64 `json:"maxC"`
	PrecipMm    float64 `json:"precipMm"`
	WeatherCode int     `json:"weatherCode"`
}

// Forecast covers the next few days.
type Forecast struct {
	Days []Day `json:"days"`
}

// Client queries Open-Meteo with a short response cache.
type Client struct {
	baseURL    string
	latitude   float64
	longitude  float64
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates a weather client for the given coordinates.
func NewClient(baseURL string, latitude, longitude float64, c *cache.Cache) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if c == nil {
		c = cache.New()
	}
	return &Client{
		baseURL:    baseURL,
		latitude:   latitude,
		longitude:  longitude,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      c,
	}
}

// Forecast returns the cached or freshly fetched forecast.
func (c *Client) Forecast(ctx context.Context) (*Forecast, error) {
	key := cache.Key("weather", map[string]float64{"lat": c.latitude, "lon": c.longitude})
	if hit, ok := c.cache.Get(key); ok {
		return hit.(*Forecast), nil
	}

	url := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f&daily=temperature_2m_min,temperature_2m_max,precipitation_sum,weather_code&forecast_days=%d&timezone=Europe%%2FVienna",
		c.baseURL, c.latitude, c.longitude, forecastDays)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: status %d", resp.StatusCode)
	}

	var out struct {
		Daily struct {
			Time          []string  `json:"time"`
			TempMin       []float64 `json:"temperature_2m_min"`
			TempMax       []float64 `json:"temperature_2m_max"`
			Precipitation []float64 `json:"precipitation_sum"`
			WeatherCode   []int     `json:"weather_code"`
		} `json:"daily"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("weather: unmarshal response: %w", err)
	}

	forecast := &Forecast{}
	for i, date := range out.Daily.Time {
		day := Day{Date: date}
		if i < len(out.Daily.TempMin) {
			day.MinC = out.Daily.TempMin[i]
		}
		if i < len(out.Daily.TempMax) {
			day.MaxC = out.Daily.TempMax[i]
		}
		if i < len(out.Daily.Precipitation) {
			day.PrecipMm = out.Daily.Precipitation[i]
		}
		if i < len(out.Daily.WeatherCode) {
			day.WeatherCode = out.Daily.WeatherCode[i]
		}
		forecast.Days = append(forecast.Days, day)
	}

	c.cache.Set(key, forecast, forecastTTL)
	return forecast, nil
}

// Render formats the forecast as a short chat reply.
func (f *Forecast) Render(lang string) string {
	if f == nil || len(f.Days) == 0 {
		return ""
	}
	english := strings.HasPrefix(strings.ToLower(lang), "en")
	var b strings.Builder
	if english {
		b.WriteString("Weather at the lodge:\n")
	} else {
		b.WriteString("Wetter an der Alpenlodge:\n")
	}
	for _, d := range f.Days {
		t, err := time.Parse("2006-01-02", d.Date)
		label := d.Date
		if err == nil {
			label = t.Format("02.01.")
		}
		fmt.Fprintf(&b, "%s %s, %.0f–%.0f °C", label, describeCode(d.WeatherCode, english), d.MinC, d.MaxC)
		if d.PrecipMm >= 1 {
			if english {
				fmt.Fprintf(&b, ", %.0f mm rain", d.PrecipMm)
			} else {
				fmt.Fprintf(&b, ", %.0f mm Niederschlag", d.PrecipMm)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// describeCode maps WMO weather codes to a short phrase.
func describeCode(code int, english bool) string {
	switch {
	case code == 0:
		if english {
			return "clear"
		}
		return "sonnig"
	case code <= 3:
		if english {
			return "partly cloudy"
		}
		return "teils bewölkt"
	case code == 45 || code == 48:
		if english {
			return "foggy"
		}
		return "neblig"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		if english {
			return "rainy"
		}
		return "regnerisch"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		if english {
			return "snow"
		}
		return "Schneefall"
	case code >= 95:
		if english {
			return "thunderstorms"
		}
		return "Gewitter"
	default:
		if english {
			return "mixed"
		}
		return "wechselhaft"
	}
}
