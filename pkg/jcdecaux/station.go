package jcdecaux

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingField is wrapped by Station.Validate when the API omitted a field
// the collector needs.
var ErrMissingField = errors.New("missing required field")

// ErrInvalidField is wrapped by Station.Validate when a required field had
// the wrong JSON type.
var ErrInvalidField = errors.New("invalid required field")

// Contract is a named zone (usually a city) under which stations are grouped.
type Contract struct {
	Name           string   `json:"name"`
	CommercialName string   `json:"commercial_name"`
	CountryCode    string   `json:"country_code"`
	Cities         []string `json:"cities"`
}

// Position is a WGS84 coordinate.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Station is a snapshot of one docking station as returned by /stations.
//
// LastUpdate is in epoch milliseconds.
type Station struct {
	Number              int
	Name                string
	Address             string
	ContractName        string
	Position            Position
	Banking             bool
	Bonus               bool
	Status              string
	BikeStands          int
	AvailableBikeStands int
	AvailableBikes      int
	LastUpdate          int64

	missing []string
	invalid []string
}

// requiredFields are the station fields points are built from.
var requiredFields = []string{
	"number",
	"name",
	"last_update",
	"bike_stands",
	"available_bike_stands",
	"available_bikes",
}

type stationInfo struct {
	Address      string   `json:"address"`
	ContractName string   `json:"contract_name"`
	Position     Position `json:"position"`
	Banking      bool     `json:"banking"`
	Bonus        bool     `json:"bonus"`
	Status       string   `json:"status"`
}

// UnmarshalJSON decodes a station field by field. Required fields that are
// absent, null or of the wrong type are recorded for Validate instead of
// failing the decode, so one bad station does not lose the whole list.
func (s *Station) UnmarshalJSON(data []byte) error {
	*s = Station{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		s.missing = append(s.missing, requiredFields...)
		return nil
	}

	// Descriptive fields are best effort: a type error leaves the zero value.
	var info stationInfo
	_ = json.Unmarshal(data, &info)
	s.Address = info.Address
	s.ContractName = info.ContractName
	s.Position = info.Position
	s.Banking = info.Banking
	s.Bonus = info.Bonus
	s.Status = info.Status

	s.decodeRequired(fields, "number", &s.Number)
	s.decodeRequired(fields, "name", &s.Name)
	s.decodeRequired(fields, "last_update", &s.LastUpdate)
	s.decodeRequired(fields, "bike_stands", &s.BikeStands)
	s.decodeRequired(fields, "available_bike_stands", &s.AvailableBikeStands)
	s.decodeRequired(fields, "available_bikes", &s.AvailableBikes)

	return nil
}

func (s *Station) decodeRequired(fields map[string]json.RawMessage, name string, dst any) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		s.missing = append(s.missing, name)
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.invalid = append(s.invalid, name)
	}
}

// Validate reports whether the decoded station carried every field needed to
// build points. Stations built in Go code are always valid.
func (s Station) Validate() error {
	if len(s.missing) == 0 && len(s.invalid) == 0 {
		return nil
	}
	if len(s.missing) > 0 {
		return fmt.Errorf("station %d: %w: %s", s.Number, ErrMissingField, strings.Join(s.missing, ", "))
	}
	return fmt.Errorf("station %d: %w: %s", s.Number, ErrInvalidField, strings.Join(s.invalid, ", "))
}

// LastUpdateTime returns LastUpdate as a time.Time.
func (s Station) LastUpdateTime() time.Time {
	return time.UnixMilli(s.LastUpdate)
}

// IsZero reports whether s is the empty-result sentinel returned by a failed
// GetStation call.
func (s Station) IsZero() bool {
	return s.Number == 0 && s.Name == "" && s.LastUpdate == 0 && len(s.missing) == 0 && len(s.invalid) == 0
}
