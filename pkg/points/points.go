// Package points maps bike-station snapshots into time-series points.
package points

import (
	"fmt"
	"strconv"
	"time"

	"github.com/HatiCode/velostat/pkg/jcdecaux"
)

// Measurement names written for every station.
const (
	MeasurementBikeStands          = "bike_stands"
	MeasurementAvailableBikeStands = "available_bike_stands"
	MeasurementAvailableBikes      = "available_bikes"
)

// Tag keys.
const (
	TagName = "name"
	TagID   = "id"
)

// FieldValue is the single field key carried by each point.
const FieldValue = "value"

// PerStation is the number of points FromStation produces.
const PerStation = 3

// Point is one timestamped, tagged, single-valued datum.
type Point struct {
	Measurement string
	Tags        map[string]string
	// Timestamp is in epoch milliseconds.
	Timestamp int64
	Value     int64
}

// Time returns Timestamp as a time.Time.
func (p Point) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Fields returns the point's field set.
func (p Point) Fields() map[string]any {
	return map[string]any{FieldValue: p.Value}
}

// FromStation returns the bike_stands, available_bike_stands and
// available_bikes points for s, in that order. All three share the same tags
// and timestamp.
func FromStation(s jcdecaux.Station) ([]Point, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("map station: %w", err)
	}

	values := [PerStation]struct {
		measurement string
		value       int
	}{
		{MeasurementBikeStands, s.BikeStands},
		{MeasurementAvailableBikeStands, s.AvailableBikeStands},
		{MeasurementAvailableBikes, s.AvailableBikes},
	}

	pts := make([]Point, 0, PerStation)
	for _, v := range values {
		pts = append(pts, Point{
			Measurement: v.measurement,
			Tags: map[string]string{
				TagName: s.Name,
				TagID:   strconv.Itoa(s.Number),
			},
			Timestamp: s.LastUpdate,
			Value:     int64(v.value),
		})
	}
	return pts, nil
}

// FromStations maps every station into one batch. Stations that fail to map
// are skipped; one error per skipped station is returned alongside the batch.
func FromStations(stations []jcdecaux.Station) ([]Point, []error) {
	batch := make([]Point, 0, len(stations)*PerStation)
	var skipped []error

	for _, s := range stations {
		pts, err := FromStation(s)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		batch = append(batch, pts...)
	}
	return batch, skipped
}
