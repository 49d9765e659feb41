package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
)

const (
	// DefaultFrameRate is the target frames per second of the frame loop.
	DefaultFrameRate = 60.0
	// DefaultGeolocationTimeout bounds the one-shot geolocation lookup.
	DefaultGeolocationTimeout = 10 * time.Second
	// DefaultStreamAddr is where the WebSocket stream listens.
	DefaultStreamAddr = ":8080"
	// DefaultMetricsAddr is where Prometheus metrics are served.
	DefaultMetricsAddr = ":9090"
	// DefaultStreamEvery broadcasts every frame.
	DefaultStreamEvery = 1
	// DefaultViewportWidth and DefaultViewportHeight size the initial camera
	// before the first resize arrives.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Config captures the runtime tunables shared by all commands.
type Config struct {
	Variant            string
	Step               float64
	FrameRate          float64
	OrientationDamping float64

	ViewportWidth  int
	ViewportHeight int

	// Observer is a fixed geolocation fix; nil means "no locator".
	Observer           *model.GeoPosition
	GeolocationTimeout time.Duration

	StreamAddr  string
	StreamEvery int
	MetricsAddr string
	RecordDir   string

	Logging LoggingConfig
}

// LoggingConfig mirrors logging.Config for the environment layer.
type LoggingConfig struct {
	Level  string
	Format string
	Path   string
}

// FrameInterval converts FrameRate to a tick duration.
func (c *Config) FrameInterval() time.Duration {
	rate := c.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Defaults returns a configuration with every field at its default.
func Defaults() *Config {
	return &Config{
		Variant:            model.DefaultVariantName,
		Step:               core.DefaultStep,
		FrameRate:          DefaultFrameRate,
		OrientationDamping: core.DefaultOrientationDamping,
		ViewportWidth:      DefaultViewportWidth,
		ViewportHeight:     DefaultViewportHeight,
		GeolocationTimeout: DefaultGeolocationTimeout,
		StreamAddr:         DefaultStreamAddr,
		StreamEvery:        DefaultStreamEvery,
		MetricsAddr:        DefaultMetricsAddr,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads ORRERY_* environment variables on top of Defaults and reports
// every invalid override in a single error.
func Load() (*Config, error) {
	cfg := Defaults()
	var problems []string

	if raw := env("ORRERY_VARIANT"); raw != "" {
		cfg.Variant = raw
	}
	if _, err := model.LookupVariant(cfg.Variant); err != nil {
		problems = append(problems, err.Error())
	}

	if raw := env("ORRERY_STEP"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			err = ValidateStep(value)
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("ORRERY_STEP must be a number in (0, 1), got %q", raw))
		} else {
			cfg.Step = value
		}
	}

	if raw := env("ORRERY_FRAME_RATE"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 || value > 1000 {
			problems = append(problems, fmt.Sprintf("ORRERY_FRAME_RATE must be in (0, 1000], got %q", raw))
		} else {
			cfg.FrameRate = value
		}
	}

	if raw := env("ORRERY_ORIENTATION_DAMPING"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("ORRERY_ORIENTATION_DAMPING must be a positive number, got %q", raw))
		} else {
			cfg.OrientationDamping = value
		}
	}

	if raw := env("ORRERY_OBSERVER"); raw != "" {
		pos, err := ParseObserver(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ORRERY_OBSERVER: %v", err))
		} else {
			cfg.Observer = &pos
		}
	}

	if raw := env("ORRERY_GEOLOCATION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("ORRERY_GEOLOCATION_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.GeolocationTimeout = d
		}
	}

	if raw := env("ORRERY_STREAM_EVERY"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			problems = append(problems, fmt.Sprintf("ORRERY_STREAM_EVERY must be a positive integer, got %q", raw))
		} else {
			cfg.StreamEvery = value
		}
	}

	cfg.StreamAddr = envOr("ORRERY_STREAM_ADDR", cfg.StreamAddr)
	cfg.MetricsAddr = envOr("ORRERY_METRICS_ADDR", cfg.MetricsAddr)
	cfg.RecordDir = env("ORRERY_RECORD_DIR")
	cfg.Logging.Level = envOr("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOr("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Path = env("LOG_PATH")

	if len(problems) > 0 {
		return cfg, errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return cfg, nil
}

// ValidateStep reports whether step is a usable per-frame progress
// increment. Progress only moves forward, so the step lies in (0, 1).
func ValidateStep(step float64) error {
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 || step >= 1 {
		return fmt.Errorf("step must be in (0, 1), got %g", step)
	}
	return nil
}

// ParseObserver parses "lat,lon" in decimal degrees.
func ParseObserver(raw string) (model.GeoPosition, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return model.GeoPosition{}, fmt.Errorf("want \"lat,lon\", got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return model.GeoPosition{}, fmt.Errorf("latitude must be within [-90, 90], got %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return model.GeoPosition{}, fmt.Errorf("longitude must be within [-180, 180], got %q", parts[1])
	}
	return model.GeoPosition{Latitude: lat, Longitude: lon}, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}
