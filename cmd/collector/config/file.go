package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingKeys is wrapped by LoadFile when required keys are absent.
var ErrMissingKeys = errors.New("missing required configuration keys")

// File is the credentials file:
//
//	{"influxdb": {"url": "", "user": "", "password": "", "database": ""},
//	 "api": {"key": ""}}
type File struct {
	InfluxDB InfluxDB
	API      API
}

type InfluxDB struct {
	URL      string
	User     string
	Password string
	Database string
}

type API struct {
	Key string
}

// Pointers let us tell an absent key from an empty one.
type rawFile struct {
	InfluxDB *rawInfluxDB `json:"influxdb" yaml:"influxdb"`
	API      *rawAPI      `json:"api" yaml:"api"`
}

type rawInfluxDB struct {
	URL      *string `json:"url" yaml:"url"`
	User     *string `json:"user" yaml:"user"`
	Password *string `json:"password" yaml:"password"`
	Database *string `json:"database" yaml:"database"`
}

type rawAPI struct {
	Key *string `json:"key" yaml:"key"`
}

// LoadFile reads and validates the credentials file at path. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON.
//
// user and password must be present but may be empty; url, database and
// api.key must be non-empty.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}

	var raw rawFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML in configuration file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON in configuration file: %w", err)
		}
	}

	return raw.validate()
}

func (r rawFile) validate() (*File, error) {
	var missing []string

	if r.InfluxDB == nil {
		missing = append(missing, "influxdb")
	} else {
		missing = appendIfEmpty(missing, "influxdb.url", r.InfluxDB.URL)
		missing = appendIfAbsent(missing, "influxdb.user", r.InfluxDB.User)
		missing = appendIfAbsent(missing, "influxdb.password", r.InfluxDB.Password)
		missing = appendIfEmpty(missing, "influxdb.database", r.InfluxDB.Database)
	}
	if r.API == nil {
		missing = append(missing, "api")
	} else {
		missing = appendIfEmpty(missing, "api.key", r.API.Key)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeys, strings.Join(missing, ", "))
	}

	return &File{
		InfluxDB: InfluxDB{
			URL:      *r.InfluxDB.URL,
			User:     *r.InfluxDB.User,
			Password: *r.InfluxDB.Password,
			Database: *r.InfluxDB.Database,
		},
		API: API{Key: *r.API.Key},
	}, nil
}

func appendIfAbsent(missing []string, key string, v *string) []string {
	if v == nil {
		return append(missing, key)
	}
	return missing
}

func appendIfEmpty(missing []string, key string, v *string) []string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return append(missing, key)
	}
	return missing
}
