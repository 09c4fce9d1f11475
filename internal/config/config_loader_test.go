package config

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yml")
	if err != nil {
		t.Fatalf("Failed to create temporary file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temporary file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		content := `
port: 9090
user_agent: "saarthi-test/0.1"
overpass:
  mirrors:
    - https://overpass.test.example.com/api/interpreter
planner:
  max_candidates: 3
cities:
  - name: indore
    bounds:
      min_lat: 22.63
      max_lat: 22.84
      min_lon: 75.75
      max_lon: 75.97
`
		path := writeTempConfig(t, content)

		cfg, err := loadConfigFromFile(path)
		if err != nil {
			t.Fatalf("loadConfigFromFile failed: %v", err)
		}

		if cfg.Port != 9090 {
			t.Errorf("Expected port 9090, got %d", cfg.Port)
		}
		if cfg.UserAgent != "saarthi-test/0.1" {
			t.Errorf("Expected overridden user agent, got %q", cfg.UserAgent)
		}
		if len(cfg.Overpass.Mirrors) != 1 || cfg.Overpass.Mirrors[0] != "https://overpass.test.example.com/api/interpreter" {
			t.Errorf("Expected mirror list to be replaced, got %v", cfg.Overpass.Mirrors)
		}
		if cfg.Planner.MaxCandidates != 3 {
			t.Errorf("Expected max candidates 3, got %d", cfg.Planner.MaxCandidates)
		}

		// Fields absent from the file keep their defaults.
		if cfg.Planner.MinRadiusKm != 10 {
			t.Errorf("Expected default min radius, got %v", cfg.Planner.MinRadiusKm)
		}
		if cfg.Geocoder.BaseURL != "https://nominatim.openstreetmap.org/search" {
			t.Errorf("Expected default geocoder URL, got %q", cfg.Geocoder.BaseURL)
		}

		if got := cfg.CityFor(22.7, 75.85); got != "indore" {
			t.Errorf("Expected indore for point inside override city, got %q", got)
		}
		if got := cfg.CityFor(28.61, 77.21); got != "unknown" {
			t.Errorf("Expected unknown after city table was replaced, got %q", got)
		}
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := writeTempConfig(t, `{ this is not valid YAML`)

		_, err := loadConfigFromFile(path)
		if err == nil {
			t.Errorf("Expected error with invalid YAML, got none")
		}
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		path := writeTempConfig(t, "planner:\n  max_candidates: 20\n")

		_, err := loadConfigFromFile(path)
		if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
			t.Errorf("Expected validation error, got: %v", err)
		}
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		_, err := loadConfigFromFile("non-existent-file.yml")
		if err == nil {
			t.Errorf("Expected error for non-existent file, got none")
		}
	})
}

func TestLoadConfigFromURL(t *testing.T) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}
	ctx := context.Background()

	t.Run("ValidResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, hasAuth := r.BasicAuth()
			if !hasAuth || user != "user" || pass != "pass" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte("port: 7070\noverpass:\n  mirrors:\n    - https://mirror-a.example.com/api/interpreter\n    - https://mirror-b.example.com/api/interpreter\n"))
		}))
		defer ts.Close()

		cfg, err := loadConfigFromURL(ctx, client, ts.URL, "user", "pass", 1)
		if err != nil {
			t.Fatalf("loadConfigFromURL failed: %v", err)
		}

		if cfg.Port != 7070 {
			t.Errorf("Expected port 7070, got %d", cfg.Port)
		}
		if len(cfg.Overpass.Mirrors) != 2 {
			t.Errorf("Expected 2 mirrors, got %v", cfg.Overpass.Mirrors)
		}
	})

	t.Run("ErrorResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		_, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 1)
		if err == nil {
			t.Errorf("Expected error with 404 response, got none")
		}
	})

	t.Run("InvalidYAMLResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte(`{ this is not valid YAML`))
		}))
		defer ts.Close()

		_, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 1)
		if err == nil {
			t.Errorf("Expected error for invalid YAML response, got none")
		}
	})

	t.Run("InvalidURL", func(t *testing.T) {
		_, err := loadConfigFromURL(ctx, client, "://invalid-url", "", "", 1)
		if err == nil || !strings.Contains(err.Error(), "failed to create request") {
			t.Errorf("Expected request creation error, got: %v", err)
		}
	})
}

func TestValidateConfigFlags(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		configURL   string
		extraArgs   []string
		expectError bool
	}{
		{"No config uses defaults", "", "", nil, false},
		{"Valid local config", "config.yml", "", nil, false},
		{"Valid remote config", "", "http://example.com/config.yml", nil, false},
		{"Both config file and URL", "config.yml", "http://example.com/config.yml", nil, true},
		{"Config file with extra args", "config.yml", "", []string{"extraArg"}, true},
		{"Config URL with extra args", "", "http://example.com/config.yml", []string{"extraArg"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(tt.name, flag.ContinueOnError)
			var output bytes.Buffer
			flag.CommandLine.SetOutput(&output)

			configFile := flag.String("config-file", "", "Path to config file")
			configURL := flag.String("config-url", "", "URL to config")

			args := []string{"cmd"}
			if tt.configFile != "" {
				args = append(args, "--config-file="+tt.configFile)
			}
			if tt.configURL != "" {
				args = append(args, "--config-url="+tt.configURL)
			}
			args = append(args, tt.extraArgs...)

			os.Args = args
			flag.CommandLine.Parse(args[1:])

			err := ValidateConfigFlags(configFile, configURL)

			if (err != nil) != tt.expectError {
				t.Errorf("Expected error: %v, got: %v", tt.expectError, err)
			}

			if err != nil && !strings.Contains(err.Error(), "only one of --config-file or --config-url") {
				t.Errorf("Unexpected error message: %v", err)
			}
		})
	}
}

func TestRefreshConfig(t *testing.T) {
	cfg := DefaultConfig()

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var serverHitCount int
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHitCount++

		user, pass, hasAuth := r.BasicAuth()
		if hasAuth && (user != "testuser" || pass != "testpass") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte("overpass:\n  mirrors:\n    - https://refreshed.example.com/api/interpreter\ncities:\n  - name: indore\n    bounds:\n      min_lat: 22.63\n      max_lat: 22.84\n      min_lon: 75.75\n      max_lon: 75.97\n"))
	}))
	defer mockServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshConfig(ctx, client, mockServer.URL, "testuser", "testpass", cfg, testLogger, 100*time.Millisecond, 1)

	time.Sleep(300 * time.Millisecond)

	if serverHitCount == 0 {
		t.Fatal("Mock server was never called")
	}

	mirrors := cfg.GetMirrors()
	var found bool
	for _, m := range mirrors {
		if m == "https://refreshed.example.com/api/interpreter" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Config not updated with refreshed mirrors, got: %v", mirrors)
	}

	if got := cfg.CityFor(22.7, 75.85); got != "indore" {
		t.Errorf("Expected refreshed city table to contain indore, got %q", got)
	}
}
