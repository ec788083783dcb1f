package main

import (
	"fmt"
	"os"

	"fieldtrack/config"
	"fieldtrack/internal/domain/geofence"

	"github.com/pkg/errors"
)

func runGeofence(lat, lon float64) error {
	cfg, err := config.New()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	var fence *geofence.Evaluator
	if path := cfg.Geofence.GeoJSONPath; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read geofence %s", path)
		}
		fence, err = geofence.FromGeoJSON(data)
		if err != nil {
			return err
		}
	} else {
		fence, err = geofence.FromCoordinates(cfg.Geofence.Ring)
		if err != nil {
			return err
		}
	}

	if !geofence.ValidCoordinate(lat, lon) {
		return errors.Errorf("invalid coordinate %f,%f", lat, lon)
	}

	bound := fence.Bound()
	fmt.Printf("Region: %d vertices, lat %.4f..%.4f, lon %.4f..%.4f\n",
		len(fence.Ring()), bound.Min.Lat(), bound.Max.Lat(), bound.Min.Lon(), bound.Max.Lon())

	if fence.Contains(lat, lon) {
		fmt.Printf("%f,%f is inside\n", lat, lon)

		return nil
	}

	return errors.Errorf("%f,%f is outside the region", lat, lon)
}
