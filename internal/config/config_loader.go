package config

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns the built-in configuration: public OSM providers,
// planner heuristics, the known metro systems, and bounding boxes for the
// major Indian metropolitan areas. A config file overrides any subset of
// these values.
func DefaultConfig() *Config {
	return &Config{
		Port:      4000,
		Env:       "development",
		CacheDir:  "cache",
		UserAgent: "saarthi/1.0 (+https://saarthi.opentransit.in)",
		Geocoder: GeocoderConfig{
			BaseURL:         "https://nominatim.openstreetmap.org/search",
			CountryCodes:    "in",
			Limit:           1,
			CacheTTLMinutes: 24 * 60,
		},
		Overpass: OverpassConfig{
			Mirrors: []string{
				"https://overpass-api.de/api/interpreter",
				"https://overpass.kumi.systems/api/interpreter",
				"https://overpass.private.coffee/api/interpreter",
			},
			TimeoutSeconds:    25,
			MaxRetries:        2,
			RequestsPerMinute: 30,
			CacheTTLMinutes:   15,
			MetroNetworks: []string{
				"Delhi Metro", "DMRC", "Noida Metro", "NMRC", "Rapid Metro",
				"Namma Metro", "BMRCL",
				"Mumbai Metro", "MMRDA", "Navi Mumbai Metro",
				"Chennai Metro", "CMRL",
				"Kolkata Metro",
				"Hyderabad Metro", "L&TMRHL",
				"Pune Metro", "Maha Metro",
				"Ahmedabad Metro", "Gujarat Metro",
				"Jaipur Metro", "JMRC",
				"Kochi Metro", "KMRL",
				"Lucknow Metro", "UPMRC",
				"Nagpur Metro",
			},
		},
		Router: RouterConfig{
			BaseURL:        "https://router.project-osrm.org",
			TimeoutSeconds: 10,
		},
		Planner: PlannerConfig{
			MaxCandidates:         5,
			MinRadiusKm:           10,
			MaxRadiusKm:           30,
			RadiusFactor:          1.5,
			TransitDistanceFactor: 3,
			UnknownCityCeilingKm:  30,
		},
		Topology: TopologyConfig{
			RefreshHours: 24,
		},
		Cities: []City{
			{Name: "delhi", Bounds: geo.BoundingBox{MinLat: 28.40, MaxLat: 28.90, MinLon: 76.84, MaxLon: 77.35}},
			{Name: "mumbai", Bounds: geo.BoundingBox{MinLat: 18.89, MaxLat: 19.30, MinLon: 72.77, MaxLon: 73.03}},
			{Name: "bengaluru", Bounds: geo.BoundingBox{MinLat: 12.83, MaxLat: 13.14, MinLon: 77.46, MaxLon: 77.78}},
			{Name: "chennai", Bounds: geo.BoundingBox{MinLat: 12.83, MaxLat: 13.23, MinLon: 80.10, MaxLon: 80.33}},
			{Name: "kolkata", Bounds: geo.BoundingBox{MinLat: 22.45, MaxLat: 22.74, MinLon: 88.24, MaxLon: 88.50}},
			{Name: "hyderabad", Bounds: geo.BoundingBox{MinLat: 17.25, MaxLat: 17.60, MinLon: 78.25, MaxLon: 78.65}},
			{Name: "pune", Bounds: geo.BoundingBox{MinLat: 18.44, MaxLat: 18.64, MinLon: 73.75, MaxLon: 73.98}},
			{Name: "ahmedabad", Bounds: geo.BoundingBox{MinLat: 22.93, MaxLat: 23.13, MinLon: 72.47, MaxLon: 72.68}},
			{Name: "jaipur", Bounds: geo.BoundingBox{MinLat: 26.78, MaxLat: 27.05, MinLon: 75.65, MaxLon: 75.94}},
			{Name: "kochi", Bounds: geo.BoundingBox{MinLat: 9.85, MaxLat: 10.12, MinLon: 76.20, MaxLon: 76.42}},
			{Name: "lucknow", Bounds: geo.BoundingBox{MinLat: 26.75, MaxLat: 26.95, MinLon: 80.85, MaxLon: 81.05}},
			{Name: "nagpur", Bounds: geo.BoundingBox{MinLat: 21.05, MaxLat: 21.25, MinLon: 78.97, MaxLon: 79.18}},
		},
	}
}

// ValidateConfigFlags ensures that only one configuration source is specified:
// either a config file "--config-file", a remote config URL "--config-url".
// Neither is required; the built-in defaults are a complete configuration.
//
// Returns an error if more than one input method is specified.
func ValidateConfigFlags(configFile, configURL *string) error {
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// parseConfig unmarshals YAML over a copy of the defaults and validates
// the result, so a config file only needs to state what differs.
func parseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %v", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return cfg, nil
}

// refreshConfig starts a background loop that periodically fetches
// configuration from a remote URL and applies the refreshable parts
// (mirror pool, city table, metro network list) to the live config.
//
// Errors during fetch or parse are logged and reported to Sentry, but the
// loop continues, ensuring resiliency in the presence of transient issues.
//
// The routine stops gracefully when the context is canceled.
func refreshConfig(ctx context.Context, client *http.Client, configURL, configAuthUser, configAuthPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping config refresh routine")
			return
		default:
			fresh, err := loadConfigFromURL(ctx, client, configURL, configAuthUser, configAuthPass, maxRetries)
			if err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.MakeMap("config_url", configURL),
					Level: sentry.LevelError,
				})
				logger.Error("Failed to refresh remote config", "error", err)
			} else {
				cfg.ApplyRefreshable(fresh)
				logger.Info("Successfully refreshed configuration",
					"mirrors", len(fresh.Overpass.Mirrors), "cities", len(fresh.Cities))
			}
			time.Sleep(interval)
		}
	}
}

// loadConfigFromFile reads a YAML configuration file from disk and merges
// it over the built-in defaults.
//
// On error, it reports issues to Sentry and returns a descriptive error.
//
// This function is used when the application is configured with the
// --config-file flag.
func loadConfigFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return nil, err
	}

	return cfg, nil
}

// loadConfigFromURL fetches a YAML configuration from a remote HTTP(S)
// endpoint, using the provided client and optional basic authentication.
//
// It validates the response status, reads the body, and merges the
// configuration over the built-in defaults.
//
// Errors are logged and reported to Sentry for observability.
func loadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) (*Config, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to fetch remote config: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("remote config returned status: %d", resp.StatusCode)
		report.ReportErrorWithSentryOptions(statusErr, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return nil, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to read remote config: %v", err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return nil, err
	}

	return cfg, nil
}
