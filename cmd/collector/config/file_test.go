package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"influxdb": {"url": "https://influx.example.com/", "user": "velostat", "password": "s3cret", "database": "velov"},
		"api": {"key": "abc123"}
	}`)

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if f.InfluxDB.URL != "https://influx.example.com/" || f.InfluxDB.Database != "velov" {
		t.Errorf("InfluxDB = %+v", f.InfluxDB)
	}
	if f.InfluxDB.User != "velostat" || f.InfluxDB.Password != "s3cret" {
		t.Errorf("credentials = %q/%q", f.InfluxDB.User, f.InfluxDB.Password)
	}
	if f.API.Key != "abc123" {
		t.Errorf("API.Key = %q, want abc123", f.API.Key)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
influxdb:
  url: http://localhost:8086
  user: ""
  password: ""
  database: velov
api:
  key: abc123
`)

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if f.InfluxDB.URL != "http://localhost:8086" || f.InfluxDB.User != "" || f.API.Key != "abc123" {
		t.Errorf("File = %+v", f)
	}
}

func TestLoadFile_MissingKeys(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantMissing []string
	}{
		{
			name:        "missing database",
			content:     `{"influxdb": {"url": "http://h", "user": "u", "password": "p"}, "api": {"key": "k"}}`,
			wantMissing: []string{"influxdb.database"},
		},
		{
			name:        "missing influxdb section",
			content:     `{"api": {"key": "k"}}`,
			wantMissing: []string{"influxdb"},
		},
		{
			name:        "missing api section",
			content:     `{"influxdb": {"url": "http://h", "user": "u", "password": "p", "database": "d"}}`,
			wantMissing: []string{"api"},
		},
		{
			name:        "empty url and key",
			content:     `{"influxdb": {"url": " ", "user": "u", "password": "p", "database": "d"}, "api": {"key": ""}}`,
			wantMissing: []string{"influxdb.url", "api.key"},
		},
		{
			name:        "everything missing",
			content:     `{"influxdb": {}, "api": {}}`,
			wantMissing: []string{"influxdb.url", "influxdb.user", "influxdb.password", "influxdb.database", "api.key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, "config.json", tt.content))
			if !errors.Is(err, ErrMissingKeys) {
				t.Fatalf("error = %v, want ErrMissingKeys", err)
			}
			for _, key := range tt.wantMissing {
				if !strings.Contains(err.Error(), key) {
					t.Errorf("error %q should name %q", err, key)
				}
			}
		})
	}
}

func TestLoadFile_Unreadable(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	_, err := LoadFile(writeFile(t, "config.json", `{"influxdb": `))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("error = %v, want invalid JSON", err)
	}
}
