package toolkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/richardwu/ai-chatbot/internal/log"
)

// defaultWeatherBaseURL is the public Open-Meteo API.
const defaultWeatherBaseURL = "https://api.open-meteo.com"

// WeatherInput are the coordinates to forecast.
type WeatherInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherOutput is the forecast subset returned to the model.
type WeatherOutput struct {
	Timezone string         `json:"timezone"`
	Current  WeatherCurrent `json:"current"`
	Daily    WeatherDaily   `json:"daily"`
}

// WeatherCurrent is the current conditions block.
type WeatherCurrent struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_2m"`
}

// WeatherDaily carries sunrise and sunset times.
type WeatherDaily struct {
	Sunrise []string `json:"sunrise"`
	Sunset  []string `json:"sunset"`
}

// WeatherConfig configures the weather tool.
type WeatherConfig struct {
	// BaseURL overrides the Open-Meteo endpoint, mainly for tests.
	BaseURL string

	// Client is the HTTP client to use. Defaults to one with a 10s timeout.
	Client *http.Client
}

// DefineWeatherTool registers the getWeather tool on the Genkit instance.
// It fetches the current temperature and sun times for a coordinate pair
// from Open-Meteo.
func DefineWeatherTool(g *genkit.Genkit, cfg WeatherConfig, logger log.Logger) ai.Tool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWeatherBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return genkit.DefineTool(g, "getWeather",
		"Get the current weather at a location given its latitude and longitude.",
		func(ctx *ai.ToolContext, input WeatherInput) (WeatherOutput, error) {
			if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
				return WeatherOutput{}, &ToolError{
					ErrorType: "InvalidArguments",
					Message:   fmt.Sprintf("coordinates out of range: lat=%v lon=%v", input.Latitude, input.Longitude),
				}
			}

			q := url.Values{}
			q.Set("latitude", fmt.Sprintf("%v", input.Latitude))
			q.Set("longitude", fmt.Sprintf("%v", input.Longitude))
			q.Set("current", "temperature_2m")
			q.Set("daily", "sunrise,sunset")
			q.Set("timezone", "auto")
			reqURL := cfg.BaseURL + "/v1/forecast?" + q.Encode()

			req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, reqURL, nil)
			if err != nil {
				return WeatherOutput{}, fmt.Errorf("building forecast request: %w", err)
			}

			resp, err := cfg.Client.Do(req)
			if err != nil {
				logger.Warn("weather upstream unreachable", "error", err)
				return WeatherOutput{}, &ToolError{
					ErrorType: "UpstreamUnavailable",
					Message:   "weather service is unreachable",
				}
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				logger.Warn("weather upstream error", "status", resp.StatusCode)
				return WeatherOutput{}, &ToolError{
					ErrorType: "UpstreamError",
					Message:   fmt.Sprintf("weather service returned status %d", resp.StatusCode),
				}
			}

			var out WeatherOutput
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return WeatherOutput{}, fmt.Errorf("decoding forecast response: %w", err)
			}
			return out, nil
		})
}
