package toolkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/richardwu/ai-chatbot/internal/log"
)

const forecastJSON = `{
	"timezone": "Asia/Tokyo",
	"current": {"time": "2026-08-30T12:00", "temperature_2m": 22.4},
	"daily": {"sunrise": ["2026-08-30T05:17"], "sunset": ["2026-08-30T18:11"]}
}`

func TestWeatherTool_Success(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path + "?" + r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecastJSON))
	}))
	defer srv.Close()

	g := genkit.Init(context.Background())
	tool := DefineWeatherTool(g, WeatherConfig{BaseURL: srv.URL}, log.NewNop())

	raw, err := tool.RunRaw(context.Background(), map[string]any{
		"latitude":  35.68,
		"longitude": 139.69,
	})
	if err != nil {
		t.Fatalf("RunRaw() error: %v", err)
	}
	out, ok := raw.(WeatherOutput)
	if !ok {
		t.Fatalf("RunRaw() returned %T", raw)
	}
	if out.Timezone != "Asia/Tokyo" {
		t.Errorf("timezone = %q", out.Timezone)
	}
	if out.Current.Temperature != 22.4 {
		t.Errorf("temperature = %v", out.Current.Temperature)
	}
	if len(out.Daily.Sunrise) != 1 || out.Daily.Sunrise[0] != "2026-08-30T05:17" {
		t.Errorf("sunrise = %v", out.Daily.Sunrise)
	}

	path, _ := gotPath.Load().(string)
	for _, want := range []string{"/v1/forecast", "latitude=35.68", "longitude=139.69", "timezone=auto"} {
		if !strings.Contains(path, want) {
			t.Errorf("request %q missing %q", path, want)
		}
	}
}

func TestWeatherTool_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := genkit.Init(context.Background())
	tool := DefineWeatherTool(g, WeatherConfig{BaseURL: srv.URL}, log.NewNop())

	_, err := tool.RunRaw(context.Background(), map[string]any{"latitude": 1.0, "longitude": 2.0})
	if err == nil {
		t.Fatal("expected error for upstream 502")
	}
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if te.ErrorType != "UpstreamError" {
		t.Errorf("ErrorType = %q", te.ErrorType)
	}
}

func TestWeatherTool_RejectsBadCoordinates(t *testing.T) {
	g := genkit.Init(context.Background())
	tool := DefineWeatherTool(g, WeatherConfig{BaseURL: "http://127.0.0.1:1"}, log.NewNop())

	_, err := tool.RunRaw(context.Background(), map[string]any{"latitude": 120.0, "longitude": 0.0})
	var te *ToolError
	if !errors.As(err, &te) || te.ErrorType != "InvalidArguments" {
		t.Errorf("err = %v, want InvalidArguments ToolError", err)
	}
}

func TestTimeTool(t *testing.T) {
	g := genkit.Init(context.Background())
	tool := DefineTimeTool(g)

	raw, err := tool.RunRaw(context.Background(), map[string]any{"timezone": "Asia/Tokyo"})
	if err != nil {
		t.Fatalf("RunRaw() error: %v", err)
	}
	out, ok := raw.(TimeOutput)
	if !ok {
		t.Fatalf("RunRaw() returned %T", raw)
	}
	if out.Timezone != "Asia/Tokyo" {
		t.Errorf("timezone = %q", out.Timezone)
	}

	_, err = tool.RunRaw(context.Background(), map[string]any{"timezone": "Nowhere/Land"})
	var te *ToolError
	if !errors.As(err, &te) || te.ErrorType != "InvalidArguments" {
		t.Errorf("err = %v, want InvalidArguments ToolError", err)
	}
}
